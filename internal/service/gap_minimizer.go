package service

import (
	"sort"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

// MinimizeGaps packs each day's blocks onto consecutive slots starting at the
// day's earliest occupied slot. Days keep their first-appearance order.
//
// Moved blocks are not checked against blocked cells; callers audit the result.
func MinimizeGaps(blocks []models.ScheduleBlock) []models.ScheduleBlock {
	var order []models.Weekday
	byDay := make(map[models.Weekday][]models.ScheduleBlock)
	for _, b := range blocks {
		if _, seen := byDay[b.Day]; !seen {
			order = append(order, b.Day)
		}
		byDay[b.Day] = append(byDay[b.Day], b)
	}

	out := make([]models.ScheduleBlock, 0, len(blocks))
	for _, day := range order {
		dayBlocks := byDay[day]
		sort.SliceStable(dayBlocks, func(i, j int) bool {
			return dayBlocks[i].TimeSlotID < dayBlocks[j].TimeSlotID
		})
		start := dayBlocks[0].TimeSlotID
		for k, b := range dayBlocks {
			b.TimeSlotID = start + k
			out = append(out, b)
		}
	}
	return out
}
