package export

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

const icsLocalFormat = "20060102T150405"

// RecurringEvent is a weekly meeting starting on its first occurrence.
type RecurringEvent struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Weeks       int
}

// Calendar groups recurring events under one zone.
type Calendar struct {
	Name     string
	Timezone string
	Events   []RecurringEvent
}

// ICSExporter renders a Calendar as an iCalendar document.
type ICSExporter struct {
	productID string
}

// NewICSExporter constructs an ICS exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{productID: "-//horarios-api//timetable//ES"}
}

// Render emits one VEVENT per event with a weekly RRULE. Times are written in
// local form with a TZID parameter so recurrences keep their wall-clock time.
func (e *ICSExporter) Render(calendar Calendar) ([]byte, error) {
	if len(calendar.Events) == 0 {
		return nil, fmt.Errorf("calendar requires at least one event")
	}
	tz := calendar.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", tz, err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)
	if calendar.Name != "" {
		cal.SetXWRCalName(calendar.Name)
	}
	cal.SetXWRTimezone(tz)

	stamp := time.Now().UTC()
	tzParam := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{tz}}
	for _, item := range calendar.Events {
		if item.UID == "" {
			return nil, fmt.Errorf("event %q has no uid", item.Summary)
		}
		if !item.End.After(item.Start) {
			return nil, fmt.Errorf("event %s ends before it starts", item.UID)
		}
		event := cal.AddEvent(item.UID)
		event.SetDtStampTime(stamp)
		event.SetProperty(ics.ComponentPropertyDtStart, item.Start.In(loc).Format(icsLocalFormat), tzParam)
		event.SetProperty(ics.ComponentPropertyDtEnd, item.End.In(loc).Format(icsLocalFormat), tzParam)
		event.SetSummary(item.Summary)
		if item.Description != "" {
			event.SetDescription(item.Description)
		}
		weeks := item.Weeks
		if weeks <= 0 {
			weeks = 1
		}
		rule := []string{"FREQ=WEEKLY", fmt.Sprintf("COUNT=%d", weeks)}
		event.SetProperty(ics.ComponentPropertyRrule, strings.Join(rule, ";"))
	}
	return []byte(cal.Serialize()), nil
}
