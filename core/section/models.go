package section

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound                = errors.New("section not found")
	ErrCodeExists              = errors.New("a section with this code already exists")
	ErrSectionFull             = errors.New("section is full")
	ErrSectionInactive         = errors.New("section is inactive")
	ErrAlreadyEnrolled         = errors.New("student is already enrolled in this section")
	ErrNotEnrolled             = errors.New("student is not enrolled in this section")
	ErrSectionNotEmpty         = errors.New("section still has enrolled students")
	ErrCapacityBelowEnrollment = errors.New("maxStudents cannot be lower than the current enrollment")
	ErrInvalidTransition       = errors.New("invalid status transition")
)

// Status of a Section. "full" is always derived from the roster size,
// never set directly.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusFull     Status = "full"
)

type (
	// Repository is the abstract store contract for Sections.
	// UpdateSection performs an optimistic version check and returns
	// core.ErrStoreConflict when the stored version differs from expectedVersion.
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excluded ...Section) error
		CreateSection(ctx context.Context, sec Section) (Section, error)
		GetSectionByID(ctx context.Context, id string) (Section, error)
		QueryAllSections(ctx context.Context) ([]Section, error)
		// FilterSectionsByInstructor and FilterSectionsByRoom back the
		// conflict validator; they may read at a lower isolation level.
		FilterSectionsByInstructor(ctx context.Context, instructorID string) ([]Section, error)
		FilterSectionsByRoom(ctx context.Context, room string) ([]Section, error)
		UpdateSection(ctx context.Context, sec Section, expectedVersion int) (Section, error)
		DeleteSection(ctx context.Context, id string) error
	}

	// Section is a scheduled class instance with a capacity-bounded roster
	// and one instructor.
	Section struct {
		ID               string         `json:"id"`
		Code             string         `json:"sectionCode"`
		Name             string         `json:"sectionName"`
		InstructorID     string         `json:"instructorId"`
		InstructorName   string         `json:"instructorName"`
		Room             string         `json:"room"`
		Schedule         []ScheduleSlot `json:"schedule"`
		MaxStudents      int            `json:"maxStudents"`
		EnrolledStudents []string       `json:"enrolledStudents"`
		Status           Status         `json:"status"`
		Version          int            `json:"-"`
		CreatedAt        time.Time      `json:"created_at"` // UTC
		UpdatedAt        time.Time      `json:"updated_at"` // UTC
	}
)

func (s *Section) IsFull() bool {
	return len(s.EnrolledStudents) >= s.MaxStudents
}

func (s *Section) IsEnrolled(studentID string) bool {
	for _, id := range s.EnrolledStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// RefreshStatus re-derives "full"/"active" from the roster size.
// An explicit "inactive" is sticky until toggled by an admin.
func (s *Section) RefreshStatus() {
	if s.Status == StatusInactive {
		return
	}
	if s.IsFull() {
		s.Status = StatusFull
	} else {
		s.Status = StatusActive
	}
}

// Commitment exposes the section's schedule to the conflict validator.
func (s *Section) Commitment() Commitment {
	return Commitment{RefID: s.ID, Label: s.Code, Slots: s.Schedule}
}

// CheckInvariants audits a section read back from the store. A violation is
// never repaired in place; it is surfaced as core.ErrInvariantViolation.
func (s *Section) CheckInvariants() error {
	if s.MaxStudents <= 0 {
		return fmt.Errorf("%w: section %s: maxStudents=%d", core.ErrInvariantViolation, s.ID, s.MaxStudents)
	}
	if len(s.EnrolledStudents) > s.MaxStudents {
		return fmt.Errorf("%w: section %s: %d enrolled for capacity %d",
			core.ErrInvariantViolation, s.ID, len(s.EnrolledStudents), s.MaxStudents)
	}
	if s.Status != StatusInactive {
		if full := s.IsFull(); (s.Status == StatusFull) != full {
			return fmt.Errorf("%w: section %s: status %q with %d/%d enrolled",
				core.ErrInvariantViolation, s.ID, s.Status, len(s.EnrolledStudents), s.MaxStudents)
		}
	}
	seen := make(map[string]struct{}, len(s.EnrolledStudents))
	for _, id := range s.EnrolledStudents {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: section %s: student %s enrolled twice", core.ErrInvariantViolation, s.ID, id)
		}
		seen[id] = struct{}{}
	}
	if err := ValidateSlots(s.Schedule); err != nil {
		return fmt.Errorf("%w: section %s: %v", core.ErrInvariantViolation, s.ID, err)
	}
	return nil
}

// NewSection contains information needed to create a new Section.
type NewSection struct {
	Code           string   `json:"sectionCode" validate:"required,notblank"`
	Name           string   `json:"sectionName" validate:"required,notblank"`
	InstructorID   string   `json:"instructorId" validate:"required"`
	InstructorName string   `json:"instructorName"`
	Room           string   `json:"room" validate:"required,notblank"`
	Schedule       []string `json:"schedule" validate:"required,min=1"`
	MaxStudents    int      `json:"maxStudents" validate:"required,gt=0"`
}

// Validate cleans and validates the input and parses the schedule expressions.
func (ns *NewSection) Validate() ([]ScheduleSlot, error) {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	ns.InstructorID = core.CleanString(ns.InstructorID)
	ns.InstructorName = core.CleanString(ns.InstructorName)
	ns.Room = core.CleanString(ns.Room)

	if err := core.Validate.Struct(ns); err != nil {
		return nil, err
	}

	slots, err := ParseSlots(ns.Schedule)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "schedule", Error: err.Error()})
	}
	return slots, nil
}

// UpdateSection defines what information may be provided to modify an
// existing Section. Empty fields keep the original value.
type UpdateSection struct {
	Code           string   `json:"sectionCode" validate:"omitempty,notblank"`
	Name           string   `json:"sectionName" validate:"omitempty,notblank"`
	InstructorID   string   `json:"instructorId"`
	InstructorName string   `json:"instructorName"`
	Room           string   `json:"room" validate:"omitempty,notblank"`
	Schedule       []string `json:"schedule" validate:"omitempty,min=1"`
	MaxStudents    *int     `json:"maxStudents" validate:"omitempty,gt=0"`
}

// Validate merges the patch into a copy of orig and returns the candidate.
// The candidate's roster and status are carried over untouched; capacity
// rules against the roster are enforced by the registry.
func (us *UpdateSection) Validate(orig Section) (Section, error) {
	sec := orig

	if code := core.CleanString(us.Code); code != "" {
		sec.Code = code
	}
	if name := core.CleanString(us.Name); name != "" {
		sec.Name = name
	}
	if id := core.CleanString(us.InstructorID); id != "" {
		sec.InstructorID = id
	}
	if name := core.CleanString(us.InstructorName); name != "" {
		sec.InstructorName = name
	}
	if room := core.CleanString(us.Room); room != "" {
		sec.Room = room
	}
	if us.MaxStudents != nil {
		sec.MaxStudents = *us.MaxStudents
	}

	if err := core.Validate.Struct(us); err != nil {
		return Section{}, err
	}

	if us.Schedule != nil {
		slots, err := ParseSlots(us.Schedule)
		if err != nil {
			return Section{}, core.NewValidationError(err, core.FieldError{Field: "schedule", Error: err.Error()})
		}
		sec.Schedule = slots
	}
	return sec, nil
}
