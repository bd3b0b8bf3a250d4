// Package calendar classifies civil dates as working or non-working days
// using an external holiday data feed.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the civil date format used everywhere in the system.
const DateLayout = "2006-01-02"

// ErrUnavailable is returned when the holiday feed cannot be reached or
// returns a status code outside the known set.
var ErrUnavailable = errors.New("calendar: classification unavailable")

// DayType is the classification of a single civil date.
type DayType int

// Raw status codes from the holiday feed map directly onto these values.
const (
	OrdinaryWorkday DayType = 0
	Weekend         DayType = 1
	MakeupWorkday   DayType = 2
	Holiday         DayType = 3
)

func (d DayType) String() string {
	switch d {
	case OrdinaryWorkday:
		return "ordinary workday"
	case Weekend:
		return "weekend"
	case MakeupWorkday:
		return "makeup workday"
	case Holiday:
		return "holiday"
	}
	return fmt.Sprintf("daytype(%d)", int(d))
}

// Working reports whether the day type counts as a working day. Make-up
// workdays are working days even though they fall on weekends.
func (d DayType) Working() bool {
	return d == OrdinaryWorkday || d == MakeupWorkday
}

// Source supplies the raw day status code for a date.
type Source interface {
	DayStatus(ctx context.Context, date string) (int, error)
}

// FallbackPolicy decides what a scheduled run does when classification
// fails. The choice is surfaced to callers instead of being a hidden
// default inside the classifier.
type FallbackPolicy int

const (
	// FallbackRun treats an unclassifiable day as a working day. A
	// redundant report beats a missing one.
	FallbackRun FallbackPolicy = iota
	// FallbackSkip treats an unclassifiable day as non-working.
	FallbackSkip
)

func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch s {
	case "", "run":
		return FallbackRun, nil
	case "skip":
		return FallbackSkip, nil
	}
	return FallbackRun, fmt.Errorf("unknown fallback policy %q (want run or skip)", s)
}

// Classifier resolves dates against a Source in one fixed reference
// timezone. It holds no state of its own.
type Classifier struct {
	source Source
	loc    *time.Location
}

func NewClassifier(source Source, loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Classifier{source: source, loc: loc}
}

// Today returns the current civil date in the reference timezone.
func (c *Classifier) Today() string {
	return time.Now().In(c.loc).Format(DateLayout)
}

// Classify returns the day type for a YYYY-MM-DD date. Unknown status
// codes and transport failures both surface as ErrUnavailable so callers
// can apply their fallback policy.
func (c *Classifier) Classify(ctx context.Context, date string) (DayType, error) {
	if _, err := time.ParseInLocation(DateLayout, date, c.loc); err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}

	status, err := c.source.DayStatus(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch status {
	case 0, 1, 2, 3:
		return DayType(status), nil
	}
	return 0, fmt.Errorf("%w: unrecognized day status %d for %s", ErrUnavailable, status, date)
}

// IsWorkingDay reports whether the date is an ordinary or make-up workday.
func (c *Classifier) IsWorkingDay(ctx context.Context, date string) (bool, error) {
	dt, err := c.Classify(ctx, date)
	if err != nil {
		return false, err
	}
	return dt.Working(), nil
}
