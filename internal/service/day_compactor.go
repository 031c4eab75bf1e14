package service

import (
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

// CompactDays tries to move each two-block course onto consecutive slots of
// the day of its first block. Courses are visited in first-appearance order and
// every kept or moved block is reserved, so later courses cannot land on it.
// Courses with any other block count pass through untouched.
func CompactDays(blocks []models.ScheduleBlock) []models.ScheduleBlock {
	var order []int
	byCourse := make(map[int][]models.ScheduleBlock)
	for _, b := range blocks {
		if _, seen := byCourse[b.CourseID]; !seen {
			order = append(order, b.CourseID)
		}
		byCourse[b.CourseID] = append(byCourse[b.CourseID], b)
	}

	reserved := newSlotLedger()
	out := make([]models.ScheduleBlock, 0, len(blocks))
	keep := func(courseBlocks []models.ScheduleBlock) {
		for _, b := range courseBlocks {
			reserved.Reserve(b.Day, b.TimeSlotID)
			out = append(out, b)
		}
	}

	for _, courseID := range order {
		courseBlocks := byCourse[courseID]
		if len(courseBlocks) != 2 {
			keep(courseBlocks)
			continue
		}

		first, second := courseBlocks[0], courseBlocks[1]
		day := first.Day
		moved := false
		for i := 0; i < len(models.TimeSlots)-1; i++ {
			s1, s2 := models.TimeSlots[i].ID, models.TimeSlots[i+1].ID
			if reserved.Taken(day, s1) || reserved.Taken(day, s2) {
				continue
			}
			first.TimeSlotID = s1
			second.Day, second.TimeSlotID = day, s2
			reserved.Reserve(day, s1)
			reserved.Reserve(day, s2)
			out = append(out, first, second)
			moved = true
			break
		}
		if !moved {
			keep(courseBlocks)
		}
	}
	return out
}
