package service

import (
	"context"
	"strings"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
)

const sampleCalendar = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:work-1\r\n" +
	"SUMMARY:Trabajo\r\n" +
	"DTSTART;TZID=America/Santiago:20250303T100000\r\n" +
	"DTEND;TZID=America/Santiago:20250303T123000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:gym-1\r\n" +
	"SUMMARY:Gimnasio\r\n" +
	"DTSTART;TZID=America/Santiago:20250305T163000\r\n" +
	"DURATION:PT45M\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:dup-1\r\n" +
	"SUMMARY:Reunion\r\n" +
	"DTSTART;TZID=America/Santiago:20250303T110000\r\n" +
	"DTEND;TZID=America/Santiago:20250303T113000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekend\r\n" +
	"SUMMARY:Paseo\r\n" +
	"DTSTART;TZID=America/Santiago:20250308T100000\r\n" +
	"DTEND;TZID=America/Santiago:20250308T120000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday\r\n" +
	"SUMMARY:Feriado\r\n" +
	"DTSTART;VALUE=DATE:20250307\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestBlockedSlotImportServiceImport(t *testing.T) {
	svc := NewBlockedSlotImportService("America/Santiago", nil)

	resp, err := svc.Import(context.Background(), strings.NewReader(sampleCalendar))
	require.NoError(t, err)

	assert.Equal(t, 5, resp.EventsRead)
	assert.Equal(t, 1, resp.EventsSkipped)
	require.Len(t, resp.BlockedSlots, 2+1+9)

	assert.Equal(t, models.BlockedTimeSlot{ID: "MONDAY-2", Day: models.Monday, TimeSlotID: 2, Reason: "Trabajo"}, resp.BlockedSlots[0])
	assert.Equal(t, 3, resp.BlockedSlots[1].TimeSlotID)
	assert.Equal(t, "Trabajo", resp.BlockedSlots[1].Reason)
	assert.Equal(t, models.BlockedTimeSlot{ID: "WEDNESDAY-6", Day: models.Wednesday, TimeSlotID: 6, Reason: "Gimnasio"}, resp.BlockedSlots[2])
	for _, cell := range resp.BlockedSlots[3:] {
		assert.Equal(t, models.Friday, cell.Day)
		assert.Equal(t, "Feriado", cell.Reason)
	}
}

func TestBlockedSlotImportServiceRejectsGarbage(t *testing.T) {
	svc := NewBlockedSlotImportService("America/Santiago", nil)

	_, err := svc.Import(context.Background(), strings.NewReader("not a calendar"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
