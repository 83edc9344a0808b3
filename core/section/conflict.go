package section

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSchedule  = errors.New("schedule slots overlap")
	ErrInstructorConflict = errors.New("instructor is already booked during this schedule")
	ErrRoomConflict       = errors.New("room is already booked during this schedule")
)

// Commitment is a schedule already committed to the timetable — a Section's
// own slots, or an attached Subject's. RefID identifies the owning entity so
// a candidate being updated can be excluded from checks against itself.
type Commitment struct {
	RefID string
	Label string // eg. section code or subject code; used in error detail
	Slots []ScheduleSlot
}

// Conflict detection is stateless and runs before any write is committed:
// an undetected double-booking silently corrupts the timetable and cannot be
// cheaply repaired after the fact. Callers (registry/linker) fetch the
// relevant existing commitments and hand them in.

// ValidateSlots rejects a schedule whose own slots overlap each other.
func ValidateSlots(slots []ScheduleSlot) error {
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Overlaps(slots[j]) {
				return fmt.Errorf("%w: %q and %q", ErrDuplicateSchedule, slots[i], slots[j])
			}
		}
	}
	return nil
}

// CheckInstructorConflict rejects a candidate schedule that overlaps any slot
// already assigned to the same instructor. The entity identified by
// candidateID is skipped so updates do not conflict with their own prior state.
func CheckInstructorConflict(candidate []ScheduleSlot, candidateID string, existing []Commitment) error {
	return checkCommitments(candidate, candidateID, existing, ErrInstructorConflict)
}

// CheckRoomConflict is the same pairwise check keyed by room instead of instructor.
func CheckRoomConflict(candidate []ScheduleSlot, candidateID string, existing []Commitment) error {
	return checkCommitments(candidate, candidateID, existing, ErrRoomConflict)
}

func checkCommitments(candidate []ScheduleSlot, candidateID string, existing []Commitment, sentinel error) error {
	for _, commitment := range existing {
		if commitment.RefID == candidateID {
			continue
		}
		for _, booked := range commitment.Slots {
			for _, slot := range candidate {
				if slot.Overlaps(booked) {
					return fmt.Errorf("%w: %q collides with %q (%s)", sentinel, slot, booked, commitment.Label)
				}
			}
		}
	}
	return nil
}
