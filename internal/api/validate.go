package api

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/index"
)

var priorityRe = regexp.MustCompile(`^[A-Z]$`)

func validateHeadlineFilter(f index.HeadlineFilter) error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.State, validation.In(index.StateOpen, index.StateDone)),
		validation.Field(&f.Priority, validation.Match(priorityRe)),
		validation.Field(&f.Until, validation.Date("2006-01-02")),
		validation.Field(&f.Limit, validation.Min(0)),
	)
}
