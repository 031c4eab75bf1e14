package models

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is one of the five teaching days.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
)

// Weekdays lists the teaching days in calendar order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayMeta = map[Weekday]struct {
	index int
	label string
	code  string
	std   time.Weekday
}{
	Monday:    {0, "Lunes", "LU", time.Monday},
	Tuesday:   {1, "Martes", "MA", time.Tuesday},
	Wednesday: {2, "Miércoles", "MI", time.Wednesday},
	Thursday:  {3, "Jueves", "JU", time.Thursday},
	Friday:    {4, "Viernes", "VI", time.Friday},
}

// Valid reports whether d is a teaching day.
func (d Weekday) Valid() bool {
	_, ok := weekdayMeta[d]
	return ok
}

// Index returns the zero-based position of d in the week, or -1.
func (d Weekday) Index() int {
	if meta, ok := weekdayMeta[d]; ok {
		return meta.index
	}
	return -1
}

// Label returns the Spanish display name.
func (d Weekday) Label() string {
	return weekdayMeta[d].label
}

// Code returns the two-letter code used by the remote solver.
func (d Weekday) Code() string {
	return weekdayMeta[d].code
}

// StdWeekday maps d onto time.Weekday.
func (d Weekday) StdWeekday() time.Weekday {
	return weekdayMeta[d].std
}

// ParseWeekday accepts canonical names, Spanish labels (with or without
// accents) and two-letter codes, case-insensitively.
func ParseWeekday(raw string) (Weekday, bool) {
	needle := foldAccents(strings.ToUpper(strings.TrimSpace(raw)))
	if needle == "" {
		return "", false
	}
	for day, meta := range weekdayMeta {
		if needle == string(day) || needle == meta.code || needle == foldAccents(strings.ToUpper(meta.label)) {
			return day, true
		}
	}
	return "", false
}

// WeekdayFromStd maps a time.Weekday onto a teaching day.
func WeekdayFromStd(w time.Weekday) (Weekday, bool) {
	for day, meta := range weekdayMeta {
		if meta.std == w {
			return day, true
		}
	}
	return "", false
}

func foldAccents(s string) string {
	return strings.NewReplacer("Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U").Replace(s)
}

// TimeSlot is one of the fixed daily teaching periods.
type TimeSlot struct {
	ID    int    `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Label renders the slot as "08:30 - 09:50".
func (t TimeSlot) Label() string {
	return fmt.Sprintf("%s - %s", t.Start, t.End)
}

// Minutes returns the start and end offsets from midnight.
func (t TimeSlot) Minutes() (int, int) {
	return ClockMinutes(t.Start), ClockMinutes(t.End)
}

// ClockMinutes converts "HH:MM" to minutes from midnight, or -1 when malformed.
func ClockMinutes(hhmm string) int {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(hhmm), "%d:%d", &h, &m); err != nil {
		return -1
	}
	return h*60 + m
}

// TimeSlots is the daily grid. IDs are contiguous from 1.
var TimeSlots = []TimeSlot{
	{ID: 1, Start: "08:30", End: "09:50"},
	{ID: 2, Start: "10:00", End: "11:20"},
	{ID: 3, Start: "11:30", End: "12:50"},
	{ID: 4, Start: "13:00", End: "14:20"},
	{ID: 5, Start: "14:30", End: "15:50"},
	{ID: 6, Start: "16:00", End: "17:20"},
	{ID: 7, Start: "17:25", End: "18:45"},
	{ID: 8, Start: "18:50", End: "20:10"},
	{ID: 9, Start: "20:15", End: "21:35"},
}

// SlotMinutes is the length of every slot.
const SlotMinutes = 80

// TimeSlotByID looks up a slot of the grid.
func TimeSlotByID(id int) (TimeSlot, bool) {
	if id < 1 || id > len(TimeSlots) {
		return TimeSlot{}, false
	}
	return TimeSlots[id-1], true
}
