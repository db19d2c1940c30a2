// Package daylabel decides which day of an employee's history is open for edits.
//
// Days are identified by a label such as "Tue 14-Jan" rendered in the host's
// local time zone. Only the label of the current instant is mutable; every
// other day is a frozen historical record. Labels are compared as opaque
// strings, so the same weekday/day/month in two different years is the same
// day.
package daylabel

import (
	"time"

	"github.com/fentz26/taskboard/internal/models"
)

// Layout is the Go reference layout for a day label.
const Layout = "Mon 02-Jan"

// Clock returns the current instant.
type Clock func() time.Time

// Format renders t as a day label in t's location.
func Format(t time.Time) models.DayLabel {
	return models.DayLabel(t.Format(Layout))
}

// Classifier computes today's label and gates edits on it.
type Classifier struct {
	now Clock
	loc *time.Location
}

// New creates a classifier using the host's local time.
func New() *Classifier {
	return &Classifier{now: time.Now}
}

// NewWithClock creates a classifier reading time from clock. A nil location
// means time.Local is looked up on every call.
func NewWithClock(clock Clock, loc *time.Location) *Classifier {
	if clock == nil {
		clock = time.Now
	}
	return &Classifier{now: clock, loc: loc}
}

// Today returns the label for the current instant. It is recomputed on every
// call so a clock or zone change takes effect immediately.
func (c *Classifier) Today() models.DayLabel {
	loc := c.loc
	if loc == nil {
		loc = time.Local
	}
	return Format(c.now().In(loc))
}

// IsMutable reports whether label denotes today.
func (c *Classifier) IsMutable(label models.DayLabel) bool {
	return label == c.Today()
}
