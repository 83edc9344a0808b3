package section

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidScheduleFormat is returned when a schedule expression cannot be
// parsed into a valid ScheduleSlot.
var ErrInvalidScheduleFormat = errors.New("invalid schedule format")

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"

	// dated slots submitted without an end time ("2026-03-02 14:00")
	// get a default duration; a zero-length slot could never conflict.
	defaultSlotDuration = 60 // minutes

	minutesPerDay = 24 * 60
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
}

// ScheduleSlot is one recurring ("Monday 09:00-10:00") or dated
// ("2026-03-02 14:00-15:00") time interval at minute resolution.
// It is a pure value type; Start < End always holds for parsed slots.
type ScheduleSlot struct {
	Day   time.Weekday // valid when !Dated
	Dated bool
	Date  time.Time // midnight UTC; valid when Dated
	Start int       // minutes from midnight
	End   int
}

// ParseSlot parses a single time-slot expression.
// Accepted formats:
//
//	"<DayName> HH:MM-HH:MM"   eg. "Monday 09:00-10:00" (sections)
//	"YYYY-MM-DD HH:MM-HH:MM"  eg. "2026-03-02 14:00-15:30" (subjects)
//	"YYYY-MM-DD HH:MM"        end defaults to start + 60min
func ParseSlot(raw string) (ScheduleSlot, error) {
	parts := strings.Fields(strings.TrimSpace(raw))
	if len(parts) != 2 {
		return ScheduleSlot{}, invalidSlot(raw, "expected \"<day> <time-range>\"")
	}

	var slot ScheduleSlot
	dayPart, timePart := parts[0], parts[1]

	if day, ok := weekdays[strings.ToLower(dayPart)]; ok {
		slot.Day = day
	} else if date, err := time.ParseInLocation(dateLayout, dayPart, time.UTC); err == nil {
		slot.Dated = true
		slot.Date = date
	} else {
		return ScheduleSlot{}, invalidSlot(raw, fmt.Sprintf("unknown day name or date %q", dayPart))
	}

	var err error
	if i := strings.IndexByte(timePart, '-'); i >= 0 {
		if slot.Start, err = parseClock(timePart[:i]); err != nil {
			return ScheduleSlot{}, invalidSlot(raw, err.Error())
		}
		if slot.End, err = parseClock(timePart[i+1:]); err != nil {
			return ScheduleSlot{}, invalidSlot(raw, err.Error())
		}
	} else {
		if !slot.Dated {
			return ScheduleSlot{}, invalidSlot(raw, "weekly slots require a time range")
		}
		if slot.Start, err = parseClock(timePart); err != nil {
			return ScheduleSlot{}, invalidSlot(raw, err.Error())
		}
		slot.End = slot.Start + defaultSlotDuration
		if slot.End >= minutesPerDay {
			slot.End = minutesPerDay - 1 // keep the slot renderable as HH:MM
			if slot.End <= slot.Start {
				return ScheduleSlot{}, invalidSlot(raw, "no room for the default duration before midnight")
			}
		}
	}

	if slot.Start >= slot.End {
		return ScheduleSlot{}, invalidSlot(raw, "start time must precede end time")
	}
	return slot, nil
}

// ParseSlots parses a set of raw slot expressions, preserving order.
func ParseSlots(raws []string) ([]ScheduleSlot, error) {
	slots := make([]ScheduleSlot, 0, len(raws))
	for _, raw := range raws {
		slot, err := ParseSlot(raw)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func invalidSlot(raw, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidScheduleFormat, raw, reason)
}

func parseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("bad time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// SameDay reports whether two slots fall on the same day.
// A weekly slot shares a day with a dated slot when the date falls on that weekday.
func (s ScheduleSlot) SameDay(o ScheduleSlot) bool {
	switch {
	case s.Dated && o.Dated:
		return s.Date.Equal(o.Date)
	case !s.Dated && !o.Dated:
		return s.Day == o.Day
	case s.Dated:
		return s.Date.Weekday() == o.Day
	default:
		return o.Date.Weekday() == s.Day
	}
}

// Overlaps reports whether the half-open intervals [s.Start,s.End) and
// [o.Start,o.End) intersect on the same day/date.
func (s ScheduleSlot) Overlaps(o ScheduleSlot) bool {
	if !s.SameDay(o) {
		return false
	}
	return s.Start < o.End && o.Start < s.End
}

// String renders the slot back in the wire format accepted by ParseSlot.
func (s ScheduleSlot) String() string {
	if s.Dated {
		return fmt.Sprintf("%s %s-%s", s.Date.Format(dateLayout), clock(s.Start), clock(s.End))
	}
	return fmt.Sprintf("%s %s-%s", s.Day, clock(s.Start), clock(s.End))
}

func clock(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

func (s ScheduleSlot) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *ScheduleSlot) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	slot, err := ParseSlot(raw)
	if err != nil {
		return err
	}
	*s = slot
	return nil
}

// SlotStrings renders a schedule back to its wire representation.
func SlotStrings(slots []ScheduleSlot) []string {
	raws := make([]string, 0, len(slots))
	for _, slot := range slots {
		raws = append(raws, slot.String())
	}
	return raws
}
