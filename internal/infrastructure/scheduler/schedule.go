package scheduler

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Schedule yields the next firing time strictly after a given instant.
// A zero time means the schedule never fires again.
type Schedule interface {
	Next(after time.Time) time.Time
	String() string
}

// RRuleSchedule fires on the occurrences of an RFC 5545 recurrence rule
type RRuleSchedule struct {
	rule *rrule.RRule
	expr string
}

// NewRRuleSchedule parses expr (e.g. "FREQ=WEEKLY;BYDAY=MO;BYHOUR=2") and
// anchors it at dtStart in UTC
func NewRRuleSchedule(expr string, dtStart time.Time) (*RRuleSchedule, error) {
	rule, err := rrule.StrToRRule(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRecurrence, expr, err)
	}
	rule.DTStart(dtStart.UTC())

	if rule.After(dtStart.UTC(), true).IsZero() {
		return nil, fmt.Errorf("%w: %q has no occurrence after %s", ErrInvalidRecurrence, expr, dtStart.UTC().Format(time.RFC3339))
	}
	return &RRuleSchedule{rule: rule, expr: expr}, nil
}

// Next returns the first occurrence strictly after the instant
func (s *RRuleSchedule) Next(after time.Time) time.Time {
	return s.rule.After(after.UTC(), false)
}

func (s *RRuleSchedule) String() string {
	return "rrule:" + s.expr
}

// IntervalSchedule fires every fixed duration
type IntervalSchedule struct {
	every time.Duration
}

// NewIntervalSchedule creates a fixed interval schedule
func NewIntervalSchedule(every time.Duration) (*IntervalSchedule, error) {
	if every <= 0 {
		return nil, ErrInvalidInterval
	}
	return &IntervalSchedule{every: every}, nil
}

// Next returns after plus the interval
func (s *IntervalSchedule) Next(after time.Time) time.Time {
	return after.Add(s.every)
}

func (s *IntervalSchedule) String() string {
	return "every " + s.every.String()
}
