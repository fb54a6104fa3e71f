package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

func TestParseTemplate_DefaultSchool(t *testing.T) {
	tpl, err := NewTemplateFactory().ParseTemplate(DefaultSchoolTemplateJSON())
	require.NoError(t, err)

	assert.Equal(t, "Plantilla base 7–16", tpl.Name)
	assert.Equal(t, generic.MustParseDate("2025-01-01"), tpl.ValidFrom)
	assert.Len(t, tpl.Blocks, 13*5)

	// Monday has nine required blocks covering 08:30-14:30 minus lunch
	var required []attendance.ScheduleBlock
	for _, b := range tpl.Blocks {
		if b.Weekday == 1 && b.RequiresPresence {
			required = append(required, b)
		}
	}
	require.Len(t, required, 9)
	assert.Equal(t, "08:30:00", required[0].Start.String())
	assert.Equal(t, "14:30:00", required[8].End.String())
	assert.Equal(t, attendance.BlockClass, required[0].BlockType)
}

func TestParseTemplate_Defaults(t *testing.T) {
	tpl, err := NewTemplateFactory().ParseTemplate(`{
		"name": "shift",
		"blocks": [{"weekdays": [6, 7], "start": "08:00", "end": "12:00:30"}]
	}`)
	require.NoError(t, err)

	require.Len(t, tpl.Blocks, 2)
	assert.Equal(t, 6, tpl.Blocks[0].Weekday)
	assert.Equal(t, 7, tpl.Blocks[1].Weekday)
	assert.True(t, tpl.Blocks[0].RequiresPresence)
	assert.Equal(t, attendance.BlockWork, tpl.Blocks[0].BlockType)
	assert.Equal(t, "12:00:30", tpl.Blocks[0].End.String())
	assert.Equal(t, generic.MustParseDate(DefaultValidFrom), tpl.ValidFrom)
}

func TestParseTemplate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"malformed json", `{"name":`, generic.ErrInvalidTemplate},
		{"missing name", `{"blocks": []}`, generic.ErrInvalidTemplate},
		{"bad valid_from", `{"name": "x", "valid_from": "2025-13-01"}`, generic.ErrInvalidDate},
		{"no weekdays", `{"name": "x", "blocks": [{"start": "08:00", "end": "09:00"}]}`, generic.ErrInvalidTemplate},
		{"weekday zero", `{"name": "x", "blocks": [{"weekdays": [0], "start": "08:00", "end": "09:00"}]}`, generic.ErrInvalidTemplate},
		{"weekday eight", `{"name": "x", "blocks": [{"weekdays": [8], "start": "08:00", "end": "09:00"}]}`, generic.ErrInvalidTemplate},
		{"bad time", `{"name": "x", "blocks": [{"weekdays": [1], "start": "8am", "end": "09:00"}]}`, generic.ErrInvalidTimeOfDay},
		{"end before start", `{"name": "x", "blocks": [{"weekdays": [1], "start": "10:00", "end": "09:00"}]}`, generic.ErrInvalidTemplate},
		{"empty block", `{"name": "x", "blocks": [{"weekdays": [1], "start": "09:00", "end": "09:00"}]}`, generic.ErrInvalidTemplate},
		{"unknown type", `{"name": "x", "blocks": [{"weekdays": [1], "start": "08:00", "end": "09:00", "type": "NAP"}]}`, generic.ErrInvalidTemplate},
	}

	f := NewTemplateFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseTemplate(tt.json)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, generic.IsClientError(err))
		})
	}
}
