package org

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  Timestamp
		n     int
	}{
		{
			input: "<2024-01-02 Tue 09:00-10:30> tail",
			want: Timestamp{
				Kind:  TimestampActiveRange,
				Start: Datetime{Year: 2024, Month: 1, Day: 2, DayName: "Tue", HasTime: true, Hour: 9},
				End:   &Datetime{Year: 2024, Month: 1, Day: 2, DayName: "Tue", HasTime: true, Hour: 10, Minute: 30},
			},
			n: 28,
		},
		{
			input: "[2024-01-01]--[2024-01-03]",
			want: Timestamp{
				Kind:  TimestampInactiveRange,
				Start: Datetime{Year: 2024, Month: 1, Day: 1},
				End:   &Datetime{Year: 2024, Month: 1, Day: 3},
			},
			n: 26,
		},
		{
			input: "<2024-02-29 Thu .+1d -2d>",
			want: Timestamp{
				Kind:     TimestampActive,
				Start:    Datetime{Year: 2024, Month: 2, Day: 29, DayName: "Thu"},
				Repeater: ".+1d",
				Delay:    "-2d",
			},
			n: 25,
		},
		{
			input: "<%%(diary-float t 4 2)>",
			want:  Timestamp{Kind: TimestampDiary, Sexp: "diary-float t 4 2"},
			n:     23,
		},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, n, ok := parseTimestamp(tt.input)
			if !ok {
				t.Fatalf("parseTimestamp(%q) ok = false", tt.input)
			}
			if n != tt.n {
				t.Errorf("n = %d, want %d", n, tt.n)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"2024-01-01",
		"<2024-13-01>",
		"<2024-01-01 Mon 25:00>",
		"<2024-01-01",
		"[2024-01-01\n]",
		"<2024-01-01 Mon +x>",
	} {
		if _, _, ok := parseTimestamp(input); ok {
			t.Errorf("parseTimestamp(%q) ok = true, want false", input)
		}
	}
}

func TestTimestamp_String(t *testing.T) {
	for _, input := range []string{
		"<2024-01-02 Tue 09:00-10:30>",
		"[2024-01-01]--[2024-01-03]",
		"<2024-02-29 Thu .+1d -2d>",
		"<%%(diary-float t 4 2)>",
	} {
		ts, _, ok := parseTimestamp(input)
		if !ok {
			t.Fatalf("parseTimestamp(%q) ok = false", input)
		}
		if got := ts.String(); got != input {
			t.Errorf("String() = %q, want %q", got, input)
		}
	}
}

func TestTimestampKind_IsActive(t *testing.T) {
	ts, _, _ := parseTimestamp("[2024-01-01]")
	if ts.IsActive() {
		t.Error("inactive timestamp reported active")
	}
	ts, _, _ = parseTimestamp("<2024-01-01>")
	if !ts.IsActive() {
		t.Error("active timestamp reported inactive")
	}
	if ts.Kind.String() != "active" {
		t.Errorf("kind = %q, want active", ts.Kind.String())
	}
	ts, _, _ = parseTimestamp("<2024-01-02 Tue 09:00-10:30>")
	if ts.Kind != TimestampActiveRange || !ts.IsActive() {
		t.Errorf("same-day time range kind = %s, want active-range", ts.Kind)
	}
}
