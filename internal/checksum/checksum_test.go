package checksum

import "testing"

func TestSum(t *testing.T) {
	got := Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestIfMatchRoundTrip(t *testing.T) {
	sum := Sum([]byte("x"))
	for _, header := range []string{sum, ETag(sum), "W/" + ETag(sum), " " + ETag(sum) + " "} {
		if got := FromIfMatch(header); got != sum {
			t.Errorf("FromIfMatch(%q) = %q, want %q", header, got, sum)
		}
	}
}
