package service

import (
	"math/rand"
	"sort"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

// Randomizer returns a uniformly distributed int in [0, n).
type Randomizer interface {
	Intn(n int) int
}

// newRandomizer returns a source private to a single generation run.
func newRandomizer(seed int64) Randomizer {
	return rand.New(rand.NewSource(seed))
}

type slotKey struct {
	Day  models.Weekday
	Time int
}

// slotLedger tracks the cells occupied during one generation run.
type slotLedger struct {
	cells map[slotKey]struct{}
}

func newSlotLedger() *slotLedger {
	return &slotLedger{cells: make(map[slotKey]struct{})}
}

func (l *slotLedger) Taken(day models.Weekday, slot int) bool {
	_, ok := l.cells[slotKey{Day: day, Time: slot}]
	return ok
}

func (l *slotLedger) Reserve(day models.Weekday, slot int) {
	l.cells[slotKey{Day: day, Time: slot}] = struct{}{}
}

func (l *slotLedger) Len() int {
	return len(l.cells)
}

// blockedSet indexes blocked cells; duplicates collapse onto the first reason.
type blockedSet map[slotKey]string

func newBlockedSet(slots []models.BlockedTimeSlot) blockedSet {
	set := make(blockedSet, len(slots))
	for _, b := range slots {
		key := slotKey{Day: b.Day, Time: b.TimeSlotID}
		if _, exists := set[key]; !exists {
			set[key] = b.Reason
		}
	}
	return set
}

func (b blockedSet) Contains(day models.Weekday, slot int) bool {
	_, ok := b[slotKey{Day: day, Time: slot}]
	return ok
}

// dayPool returns the weekdays eligible under prefs.
func dayPool(prefs models.PreferenceSet) []models.Weekday {
	days := make([]models.Weekday, 0, len(models.Weekdays))
	for _, d := range models.Weekdays {
		if d == models.Friday && prefs.Has(models.OptimizeNoFridays) {
			continue
		}
		days = append(days, d)
	}
	return days
}

// Slot 4 (13:00) belongs to both the morning and the afternoon window.
const middaySlot = 4

// slotPool returns the slot ids eligible under prefs. The morning window wins
// when both morning and afternoon are requested.
func slotPool(prefs models.PreferenceSet) []int {
	slots := make([]int, 0, len(models.TimeSlots))
	for _, ts := range models.TimeSlots {
		switch {
		case prefs.Has(models.OptimizeMorning):
			if ts.ID > middaySlot {
				continue
			}
		case prefs.Has(models.OptimizeAfternoon):
			if ts.ID < middaySlot {
				continue
			}
		}
		slots = append(slots, ts.ID)
	}
	return slots
}

// gapPenalty counts the idle slots between the first and last block of each day.
func gapPenalty(blocks []models.ScheduleBlock) int {
	byDay := make(map[models.Weekday][]int)
	for _, b := range blocks {
		byDay[b.Day] = append(byDay[b.Day], b.TimeSlotID)
	}
	penalty := 0
	for _, times := range byDay {
		if len(times) < 2 {
			continue
		}
		sort.Ints(times)
		for i := 0; i < len(times)-1; i++ {
			if diff := times[i+1] - times[i]; diff > 1 {
				penalty += diff - 1
			}
		}
	}
	return penalty
}

// slotsOverlapping returns the ids of grid slots intersecting the window
// [startMin, endMin), both in minutes from midnight.
func slotsOverlapping(startMin, endMin int) []int {
	var ids []int
	for _, ts := range models.TimeSlots {
		s, e := ts.Minutes()
		if s < endMin && startMin < e {
			ids = append(ids, ts.ID)
		}
	}
	return ids
}
