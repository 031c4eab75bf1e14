package service

import (
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

// pipeline runs one generation: assignment, then the optional passes, then assembly.
type pipeline struct {
	maxAttempts     int
	blocksPerCourse int
	newRand         func(seed int64) Randomizer
	assembler       *ScheduleAssembler
}

type pipelineRun struct {
	Schedule *models.Schedule
	Attempts int
}

func (p pipeline) run(courses []plannedCourse, skipped []int, prefs models.PreferenceSet, seed int64) pipelineRun {
	ledger := newSlotLedger()
	assigned := NewSlotAssigner(p.newRand(seed), p.maxAttempts, p.blocksPerCourse).Assign(courses, prefs, ledger)

	blocks := assigned.Blocks
	if prefs.Has(models.OptimizeMinimizeGaps) {
		blocks = MinimizeGaps(blocks)
	}
	if prefs.Has(models.OptimizeCompactDays) {
		blocks = CompactDays(blocks)
	}

	schedule := p.assembler.Assemble(assemblyInput{
		Blocks:      blocks,
		Unfulfilled: assigned.Unfulfilled,
		Skipped:     skipped,
		Blocked:     newBlockedSet(prefs.BlockedSlots),
		Seed:        seed,
	})
	return pipelineRun{Schedule: schedule, Attempts: assigned.Attempts}
}

// Score weights for ranking candidate schedules.
const (
	unplacedBlockWeight = 25
	gapWeight           = 2
	warningWeight       = 10
)

// scoreSchedule rates a schedule out of 100.
func scoreSchedule(schedule *models.Schedule) (float64, int) {
	unplaced := 0
	for _, u := range schedule.Unfulfilled {
		unplaced += u.Requested - u.Placed
	}
	gaps := gapPenalty(schedule.Blocks)
	score := 100 - float64(unplaced*unplacedBlockWeight+gaps*gapWeight+len(schedule.Warnings)*warningWeight)
	if score < 0 {
		score = 0
	}
	return score, gaps
}
