package section

import (
	"errors"
	"testing"
	"time"
)

func TestParseSlot(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ScheduleSlot
		wantErr bool
	}{
		{
			name: "weekly",
			raw:  "Monday 09:00-10:30",
			want: ScheduleSlot{Day: time.Monday, Start: 9 * 60, End: 10*60 + 30},
		},
		{
			name: "weekly short day name",
			raw:  "wed 08:00-09:00",
			want: ScheduleSlot{Day: time.Wednesday, Start: 8 * 60, End: 9 * 60},
		},
		{
			name: "weekly upper case",
			raw:  "FRIDAY 13:00-16:00",
			want: ScheduleSlot{Day: time.Friday, Start: 13 * 60, End: 16 * 60},
		},
		{
			name: "dated with range",
			raw:  "2026-03-02 14:00-15:30",
			want: ScheduleSlot{
				Dated: true,
				Date:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
				Start: 14 * 60,
				End:   15*60 + 30,
			},
		},
		{
			name: "dated without end gets default duration",
			raw:  "2026-03-02 14:00",
			want: ScheduleSlot{
				Dated: true,
				Date:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
				Start: 14 * 60,
				End:   15 * 60,
			},
		},
		{
			name: "dated near midnight stays within the day",
			raw:  "2026-03-02 23:30",
			want: ScheduleSlot{
				Dated: true,
				Date:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
				Start: 23*60 + 30,
				End:   23*60 + 59,
			},
		},
		{name: "dated at midnight has no room for the default duration", raw: "2026-03-02 23:59", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "unknown day", raw: "Caturday 09:00-10:00", wantErr: true},
		{name: "bad date", raw: "2026-13-45 09:00-10:00", wantErr: true},
		{name: "bad time", raw: "Monday 9h00-10h00", wantErr: true},
		{name: "weekly without range", raw: "Monday 09:00", wantErr: true},
		{name: "start equals end", raw: "Monday 09:00-09:00", wantErr: true},
		{name: "start after end", raw: "Monday 10:00-09:00", wantErr: true},
		{name: "too many fields", raw: "Monday 09:00 10:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSlot(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidScheduleFormat) {
					t.Fatalf("ParseSlot() error = %v, want ErrInvalidScheduleFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSlot() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSlot() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseSlot_roundTrip(t *testing.T) {
	for _, raw := range []string{
		"Monday 09:00-10:30",
		"Sunday 00:00-01:00",
		"2026-03-02 14:00-15:30",
	} {
		slot, err := ParseSlot(raw)
		if err != nil {
			t.Fatalf("ParseSlot(%q): %v", raw, err)
		}
		back, err := ParseSlot(slot.String())
		if err != nil {
			t.Fatalf("ParseSlot(String()): %v", err)
		}
		if back != slot {
			t.Errorf("round trip = %+v, want %+v", back, slot)
		}
	}
}

func TestScheduleSlot_Overlaps(t *testing.T) {
	mustParse := func(raw string) ScheduleSlot {
		slot, err := ParseSlot(raw)
		if err != nil {
			t.Fatalf("ParseSlot(%q): %v", raw, err)
		}
		return slot
	}

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "same day overlapping", a: "Monday 09:00-11:00", b: "Monday 10:00-12:00", want: true},
		{name: "containment", a: "Monday 09:00-12:00", b: "Monday 10:00-11:00", want: true},
		{name: "identical", a: "Monday 09:00-10:00", b: "Monday 09:00-10:00", want: true},
		{name: "back to back", a: "Monday 09:00-10:00", b: "Monday 10:00-11:00", want: false},
		{name: "different days", a: "Monday 09:00-10:00", b: "Tuesday 09:00-10:00", want: false},
		{name: "dated vs dated same date", a: "2026-03-02 14:00-16:00", b: "2026-03-02 15:00-17:00", want: true},
		{name: "dated vs dated different date", a: "2026-03-02 14:00-16:00", b: "2026-03-09 14:00-16:00", want: false},
		// 2026-03-02 is a Monday
		{name: "dated vs weekly same weekday", a: "2026-03-02 14:00-16:00", b: "Monday 15:00-17:00", want: true},
		{name: "dated vs weekly other weekday", a: "2026-03-02 14:00-16:00", b: "Tuesday 15:00-17:00", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := mustParse(tt.a), mustParse(tt.b)
			if got := a.Overlaps(b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			// symmetry
			if got := b.Overlaps(a); got != tt.want {
				t.Errorf("Overlaps() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}
