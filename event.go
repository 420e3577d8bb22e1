package sitewatch

import (
	"fmt"
	"time"
)

// EventType identifies the outcome of a site check.
type EventType int

const (
	EventUnchanged EventType = iota
	EventChanged
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventUnchanged:
		return "unchanged"
	case EventChanged:
		return "changed"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is the outcome of one site check. Events are ephemeral signals for
// notification and display; they are never persisted.
type Event struct {
	Type   EventType
	SiteID string
	At     time.Time

	// Diff is set for EventChanged.
	Diff string

	// Code and Message are set for EventError.
	Code    string
	Message string
}

// UnchangedEvent returns an event reporting no change for siteID.
func UnchangedEvent(siteID string, at time.Time) Event {
	return Event{Type: EventUnchanged, SiteID: siteID, At: at}
}

// ChangedEvent returns an event reporting a change with the given diff.
func ChangedEvent(siteID, diff string, at time.Time) Event {
	return Event{Type: EventChanged, SiteID: siteID, Diff: diff, At: at}
}

// ErrorEvent returns an event reporting a failed check.
// The code and message are taken from err.
func ErrorEvent(siteID string, err error, at time.Time) Event {
	msg := ErrorMessage(err)
	if ErrorCode(err) == EINTERNAL {
		msg = err.Error()
	}
	return Event{
		Type:    EventError,
		SiteID:  siteID,
		At:      at,
		Code:    ErrorCode(err),
		Message: msg,
	}
}
