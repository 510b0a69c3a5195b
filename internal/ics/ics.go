// Package ics renders a user's events as an iCalendar feed that calendar
// applications can subscribe to.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/slotswap/slotswap-go/internal/model"
)

const productID = "-//slotswap//EN"

// BuildCalendar converts events into a VCALENDAR document. stamp becomes the
// DTSTAMP of every component.
func BuildCalendar(events []model.Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	stamp = stamp.UTC()
	for i := range events {
		cal.Children = append(cal.Children, toVEvent(&events[i], stamp))
	}
	return cal
}

// Write encodes the events as iCalendar data onto w.
func Write(w io.Writer, events []model.Event, stamp time.Time) error {
	if err := ical.NewEncoder(w).Encode(BuildCalendar(events, stamp)); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

func toVEvent(event *model.Event, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, fmt.Sprintf("event-%d@slotswap", event.ID))
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime)

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	// Slots offered on the marketplace show as free time for the subscriber.
	if event.Status == model.EventStatusSwappable {
		ve.Props.SetText(ical.PropTransparency, "TRANSPARENT")
	}
	return ve
}
