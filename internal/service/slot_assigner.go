package service

import (
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

const (
	defaultMaxAttempts     = 200
	defaultBlocksPerCourse = 2
)

// reasonAttemptsExhausted is reported for courses left with fewer blocks than requested.
const reasonAttemptsExhausted = "attempt budget exhausted before finding a free cell"

// plannedCourse is a catalog course ready for placement.
type plannedCourse struct {
	Course    models.Course
	Professor *models.Professor
}

type assignmentResult struct {
	Blocks      []models.ScheduleBlock
	Unfulfilled []models.UnfulfilledCourse
	Attempts    int
}

// SlotAssigner places weekly blocks for each course by random sampling.
type SlotAssigner struct {
	rng             Randomizer
	maxAttempts     int
	blocksPerCourse int
}

// NewSlotAssigner builds an assigner; non-positive limits fall back to 200 attempts and 2 blocks.
func NewSlotAssigner(rng Randomizer, maxAttempts, blocksPerCourse int) *SlotAssigner {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if blocksPerCourse <= 0 {
		blocksPerCourse = defaultBlocksPerCourse
	}
	return &SlotAssigner{rng: rng, maxAttempts: maxAttempts, blocksPerCourse: blocksPerCourse}
}

// Assign places courses in order, committing every placement to ledger.
// A course that runs out of attempts keeps whatever it managed to place.
// dayPool and slotPool never come back empty, so Intn always gets n > 0.
func (a *SlotAssigner) Assign(courses []plannedCourse, prefs models.PreferenceSet, ledger *slotLedger) assignmentResult {
	blocked := newBlockedSet(prefs.BlockedSlots)
	days := dayPool(prefs)
	slots := slotPool(prefs)

	var result assignmentResult
	for _, pc := range courses {
		placed := 0
		for attempt := 0; attempt < a.maxAttempts && placed < a.blocksPerCourse; attempt++ {
			result.Attempts++
			day := days[a.rng.Intn(len(days))]
			slot := slots[a.rng.Intn(len(slots))]
			if ledger.Taken(day, slot) || blocked.Contains(day, slot) {
				continue
			}
			ledger.Reserve(day, slot)
			result.Blocks = append(result.Blocks, newBlock(pc, day, slot))
			placed++
		}

		if placed < a.blocksPerCourse {
			result.Unfulfilled = append(result.Unfulfilled, models.UnfulfilledCourse{
				CourseID:  pc.Course.ID,
				Requested: a.blocksPerCourse,
				Placed:    placed,
				Reason:    reasonAttemptsExhausted,
			})
		}
	}
	return result
}

func newBlock(pc plannedCourse, day models.Weekday, slot int) models.ScheduleBlock {
	return models.ScheduleBlock{
		CourseID:   pc.Course.ID,
		CourseCode: pc.Course.Code,
		CourseName: pc.Course.Name,
		Day:        day,
		TimeSlotID: slot,
		Professor:  pc.Professor,
	}
}
