/*
Package factory provides JSON to Go schedule template conversion.

PURPOSE:
  Converts JSON schedule template definitions into attendance.ScheduleTemplate
  values. Schedules can be configured without code changes: an admin UI or
  a seed file posts the JSON, the factory validates it and expands the
  per-weekday blocks.

JSON SCHEMA:
  {
    "name": "Plantilla base 7-16",
    "valid_from": "2025-01-01",
    "blocks": [
      {
        "weekdays": [1, 2, 3, 4, 5],
        "start": "08:30",
        "end": "09:10",
        "type": "CLASS",
        "requires_presence": true,
        "label": "Lección 1"
      }
    ]
  }

KEY FEATURES:
  - Weekdays are ISO (1=Monday .. 7=Sunday); one JSON block expands to one
    ScheduleBlock per weekday
  - Times accept HH:MM or HH:MM:SS and must satisfy end > start
  - type defaults to WORK, requires_presence defaults to true

USAGE:
  f := NewTemplateFactory()
  tpl, err := f.ParseTemplate(DefaultSchoolTemplateJSON())

SEE ALSO:
  - attendance/types.go: ScheduleTemplate and ScheduleBlock
  - attendance/schedule.go: How required blocks become the expected schedule
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TemplateJSON is the JSON representation of a schedule template.
type TemplateJSON struct {
	Name      string      `json:"name"`
	ValidFrom string      `json:"valid_from,omitempty"`
	Blocks    []BlockJSON `json:"blocks"`
}

// BlockJSON is a time slot repeated on each listed weekday.
type BlockJSON struct {
	Weekdays         []int  `json:"weekdays"`
	Start            string `json:"start"`
	End              string `json:"end"`
	Type             string `json:"type,omitempty"`
	RequiresPresence *bool  `json:"requires_presence,omitempty"` // default true
	Label            string `json:"label,omitempty"`
}

// DefaultValidFrom is used when a template omits valid_from.
const DefaultValidFrom = "2025-01-01"

// =============================================================================
// FACTORY
// =============================================================================

// TemplateFactory creates schedule templates from JSON.
type TemplateFactory struct{}

func NewTemplateFactory() *TemplateFactory {
	return &TemplateFactory{}
}

// ParseTemplate parses a JSON template definition.
func (f *TemplateFactory) ParseTemplate(jsonStr string) (attendance.ScheduleTemplate, error) {
	var tj TemplateJSON
	if err := json.Unmarshal([]byte(jsonStr), &tj); err != nil {
		return attendance.ScheduleTemplate{}, fmt.Errorf("%w: %v", generic.ErrInvalidTemplate, err)
	}
	return f.Build(tj)
}

// Build validates a decoded template and expands its blocks.
func (f *TemplateFactory) Build(tj TemplateJSON) (attendance.ScheduleTemplate, error) {
	if tj.Name == "" {
		return attendance.ScheduleTemplate{}, fmt.Errorf("%w: name is required", generic.ErrInvalidTemplate)
	}

	validFrom := tj.ValidFrom
	if validFrom == "" {
		validFrom = DefaultValidFrom
	}
	from, err := generic.ParseDate(validFrom)
	if err != nil {
		return attendance.ScheduleTemplate{}, err
	}

	tpl := attendance.ScheduleTemplate{Name: tj.Name, ValidFrom: from}
	for i, bj := range tj.Blocks {
		blocks, err := f.buildBlocks(bj)
		if err != nil {
			return attendance.ScheduleTemplate{}, fmt.Errorf("block %d: %w", i, err)
		}
		tpl.Blocks = append(tpl.Blocks, blocks...)
	}
	return tpl, nil
}

func (f *TemplateFactory) buildBlocks(bj BlockJSON) ([]attendance.ScheduleBlock, error) {
	if len(bj.Weekdays) == 0 {
		return nil, fmt.Errorf("%w: weekdays is required", generic.ErrInvalidTemplate)
	}
	start, err := generic.ParseTimeOfDay(bj.Start)
	if err != nil {
		return nil, err
	}
	end, err := generic.ParseTimeOfDay(bj.End)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: end %s must be after start %s", generic.ErrInvalidTemplate, end, start)
	}

	blockType, err := parseBlockType(bj.Type)
	if err != nil {
		return nil, err
	}
	requires := true
	if bj.RequiresPresence != nil {
		requires = *bj.RequiresPresence
	}

	blocks := make([]attendance.ScheduleBlock, 0, len(bj.Weekdays))
	for _, wd := range bj.Weekdays {
		if wd < 1 || wd > 7 {
			return nil, fmt.Errorf("%w: weekday %d outside 1..7", generic.ErrInvalidTemplate, wd)
		}
		blocks = append(blocks, attendance.ScheduleBlock{
			Weekday:          wd,
			Start:            start,
			End:              end,
			RequiresPresence: requires,
			BlockType:        blockType,
			Label:            bj.Label,
		})
	}
	return blocks, nil
}

func parseBlockType(s string) (attendance.BlockType, error) {
	switch attendance.BlockType(s) {
	case "":
		return attendance.BlockWork, nil
	case attendance.BlockWork, attendance.BlockClass, attendance.BlockBreak, attendance.BlockGap:
		return attendance.BlockType(s), nil
	default:
		return "", fmt.Errorf("%w: unknown block type %q", generic.ErrInvalidTemplate, s)
	}
}

// =============================================================================
// PRESETS
// =============================================================================

// DefaultSchoolTemplateJSON is the base Monday-Friday school day: arrival
// at 07:00, lessons from 08:30, lunch 12:00-13:00, free planning time
// after 14:30. Only lessons and short recesses between them require presence.
func DefaultSchoolTemplateJSON() string {
	return `{
  "name": "Plantilla base 7–16",
  "valid_from": "2025-01-01",
  "blocks": [
    {"weekdays": [1,2,3,4,5], "start": "07:00", "end": "08:30", "type": "GAP",   "requires_presence": false, "label": "Llegada"},
    {"weekdays": [1,2,3,4,5], "start": "08:30", "end": "09:10", "type": "CLASS", "requires_presence": true,  "label": "Lección 1"},
    {"weekdays": [1,2,3,4,5], "start": "09:10", "end": "09:50", "type": "CLASS", "requires_presence": true,  "label": "Lección 2"},
    {"weekdays": [1,2,3,4,5], "start": "09:50", "end": "10:00", "type": "BREAK", "requires_presence": true,  "label": "Recreo"},
    {"weekdays": [1,2,3,4,5], "start": "10:00", "end": "10:40", "type": "CLASS", "requires_presence": true,  "label": "Lección 3"},
    {"weekdays": [1,2,3,4,5], "start": "10:40", "end": "11:20", "type": "CLASS", "requires_presence": true,  "label": "Lección 4"},
    {"weekdays": [1,2,3,4,5], "start": "11:20", "end": "11:30", "type": "BREAK", "requires_presence": true,  "label": "Recreo"},
    {"weekdays": [1,2,3,4,5], "start": "11:30", "end": "12:00", "type": "GAP",   "requires_presence": false, "label": "Planeamiento"},
    {"weekdays": [1,2,3,4,5], "start": "12:00", "end": "13:00", "type": "BREAK", "requires_presence": false, "label": "Almuerzo"},
    {"weekdays": [1,2,3,4,5], "start": "13:00", "end": "13:40", "type": "CLASS", "requires_presence": true,  "label": "Lección 5"},
    {"weekdays": [1,2,3,4,5], "start": "13:40", "end": "14:20", "type": "CLASS", "requires_presence": true,  "label": "Lección 6"},
    {"weekdays": [1,2,3,4,5], "start": "14:20", "end": "14:30", "type": "BREAK", "requires_presence": true,  "label": "Recreo"},
    {"weekdays": [1,2,3,4,5], "start": "14:30", "end": "16:00", "type": "GAP",   "requires_presence": false, "label": "Planeamiento"}
  ]
}`
}

// DefaultSchoolTemplate parses DefaultSchoolTemplateJSON. It panics on
// error, which would mean the preset itself is malformed.
func DefaultSchoolTemplate() attendance.ScheduleTemplate {
	tpl, err := NewTemplateFactory().ParseTemplate(DefaultSchoolTemplateJSON())
	if err != nil {
		panic(err)
	}
	return tpl
}
