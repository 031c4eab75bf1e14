package service

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
)

// MaxCalendarBytes bounds uploaded calendars.
const MaxCalendarBytes = 2 << 20

var icsDurationPattern = regexp.MustCompile(`^P(?:T(?:(\d+)H)?(?:(\d+)M)?)$`)

// BlockedSlotImportService turns calendar events into blocked grid cells.
type BlockedSlotImportService struct {
	loc    *time.Location
	logger *zap.Logger
}

// NewBlockedSlotImportService builds the importer; events are read in timezone,
// falling back to UTC when it cannot be loaded.
func NewBlockedSlotImportService(timezone string, logger *zap.Logger) *BlockedSlotImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		logger.Warn("calendar timezone unavailable, using UTC", zap.String("timezone", timezone))
		loc = time.UTC
	}
	return &BlockedSlotImportService{loc: loc, logger: logger}
}

// Import reads VEVENTs from r. Each event blocks every weekday slot it
// overlaps; the event summary becomes the reason.
func (s *BlockedSlotImportService) Import(ctx context.Context, r io.Reader) (*dto.BlockedSlotImportResponse, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(r, MaxCalendarBytes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar file")
	}

	events := cal.Events()
	resp := &dto.BlockedSlotImportResponse{BlockedSlots: []models.BlockedTimeSlot{}, EventsRead: len(events)}
	seen := make(map[slotKey]struct{})
	for _, evt := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells := s.eventCells(evt)
		if len(cells) == 0 {
			resp.EventsSkipped++
			continue
		}
		for _, cell := range cells {
			key := slotKey{Day: cell.Day, Time: cell.TimeSlotID}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			resp.BlockedSlots = append(resp.BlockedSlots, cell)
		}
	}

	sort.SliceStable(resp.BlockedSlots, func(i, j int) bool {
		a, b := resp.BlockedSlots[i], resp.BlockedSlots[j]
		if a.Day != b.Day {
			return a.Day.Index() < b.Day.Index()
		}
		return a.TimeSlotID < b.TimeSlotID
	})
	s.logger.Info("calendar imported",
		zap.Int("events", resp.EventsRead),
		zap.Int("skipped", resp.EventsSkipped),
		zap.Int("blocked_slots", len(resp.BlockedSlots)),
	)
	return resp, nil
}

func (s *BlockedSlotImportService) eventCells(evt *ics.VEvent) []models.BlockedTimeSlot {
	start, allDay, err := s.eventTime(evt, ics.ComponentPropertyDtStart)
	if err != nil {
		return nil
	}
	day, ok := models.WeekdayFromStd(start.Weekday())
	if !ok {
		return nil
	}

	reason := ""
	if summary := evt.GetProperty(ics.ComponentPropertySummary); summary != nil {
		reason = strings.TrimSpace(summary.Value)
	}

	var slots []int
	if allDay {
		for _, ts := range models.TimeSlots {
			slots = append(slots, ts.ID)
		}
	} else {
		end, _, err := s.eventTime(evt, ics.ComponentPropertyDtEnd)
		if err != nil {
			dur, ok := eventDuration(evt)
			if !ok {
				return nil
			}
			end = start.Add(dur)
		}
		startMin := start.Hour()*60 + start.Minute()
		endMin := end.Hour()*60 + end.Minute()
		if !sameDate(start, end) {
			endMin = 24 * 60
		}
		slots = slotsOverlapping(startMin, endMin)
	}

	cells := make([]models.BlockedTimeSlot, 0, len(slots))
	for _, id := range slots {
		cells = append(cells, models.BlockedTimeSlot{
			ID:         fmt.Sprintf("%s-%d", day, id),
			Day:        day,
			TimeSlotID: id,
			Reason:     reason,
		})
	}
	return cells
}

// eventTime parses a DATE or DATE-TIME property, honouring TZID.
func (s *BlockedSlotImportService) eventTime(evt *ics.VEvent, prop ics.ComponentProperty) (time.Time, bool, error) {
	p := evt.GetProperty(prop)
	if p == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", prop)
	}
	val := strings.TrimSpace(p.Value)

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(s.loc), false, nil
	}
	if t, err := time.Parse("20060102T150405", val); err == nil {
		loc := s.loc
		if tzid, ok := p.ICalParameters[string(ics.ParameterTzid)]; ok && len(tzid) > 0 {
			if tzLoc, err := time.LoadLocation(tzid[0]); err == nil {
				loc = tzLoc
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc).In(s.loc), false, nil
	}
	if t, err := time.Parse("20060102", val); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc), true, nil
	}
	return time.Time{}, false, fmt.Errorf("unparseable date %q", val)
}

// eventDuration reads hour and minute DURATION values such as PT1H20M.
func eventDuration(evt *ics.VEvent) (time.Duration, bool) {
	p := evt.GetProperty(ics.ComponentPropertyDuration)
	if p == nil {
		return 0, false
	}
	m := icsDurationPattern.FindStringSubmatch(strings.TrimSpace(p.Value))
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	return d, d > 0
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
