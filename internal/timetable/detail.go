package timetable

import "fmt"

// DetailLevel controls how deep timetables are expanded.
type DetailLevel string

const (
	DetailEvent        DetailLevel = "event"
	DetailSession      DetailLevel = "session"
	DetailContribution DetailLevel = "contribution"
	DetailAll          DetailLevel = "all"
)

// ParseDetailLevel parses s; the empty string means DetailEvent.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch d := DetailLevel(s); d {
	case "":
		return DetailEvent, nil
	case DetailEvent, DetailSession, DetailContribution, DetailAll:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown detail level %q", ErrValidation, s)
}

// IncludesSessions reports whether session blocks are expanded.
func (d DetailLevel) IncludesSessions() bool {
	return d == DetailSession || d == DetailContribution || d == DetailAll
}

// IncludesContributions reports whether contributions and breaks are
// expanded.
func (d DetailLevel) IncludesContributions() bool {
	return d == DetailContribution || d == DetailAll
}
