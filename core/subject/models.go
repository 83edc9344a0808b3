package subject

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
)

var (
	// errors
	ErrNotFound = errors.New("subject not found")
)

type (
	// Repository is the abstract store contract for Subjects.
	Repository interface {
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		QueryAllSubjects(ctx context.Context) ([]Subject, error)
		FilterSubjectsBySection(ctx context.Context, sectionID string) ([]Subject, error)
		UpdateSubject(ctx context.Context, sub Subject, expectedVersion int) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error
	}

	// Subject is a course definition that may be taught within a Section.
	// SectionID is a weak reference: relation only, never ownership.
	Subject struct {
		ID         string                 `json:"id"`
		Code       string                 `json:"subjectCode"`
		Name       string                 `json:"subjectName"`
		Department string                 `json:"department"`
		Schedule   []section.ScheduleSlot `json:"schedules"`
		SectionID  string                 `json:"sectionId,omitempty"`
		Version    int                    `json:"-"`
		CreatedAt  time.Time              `json:"created_at"` // UTC
		UpdatedAt  time.Time              `json:"updated_at"` // UTC
	}
)

func (s *Subject) IsAttached() bool {
	return s.SectionID != ""
}

// Commitment exposes the subject's schedule to the conflict validator.
func (s *Subject) Commitment() section.Commitment {
	return section.Commitment{RefID: s.ID, Label: s.Code, Slots: s.Schedule}
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Code       string   `json:"subjectCode" validate:"required,notblank"`
	Name       string   `json:"subjectName" validate:"required,notblank"`
	Department string   `json:"department" validate:"required,notblank"`
	Schedules  []string `json:"schedules"`
	SectionID  string   `json:"sectionId"`
}

// Validate cleans and validates the input and parses the schedule expressions.
func (ns *NewSubject) Validate() ([]section.ScheduleSlot, error) {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	ns.Department = core.CleanString(ns.Department)
	ns.SectionID = core.CleanString(ns.SectionID)

	if err := core.Validate.Struct(ns); err != nil {
		return nil, err
	}

	slots, err := section.ParseSlots(ns.Schedules)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "schedules", Error: err.Error()})
	}
	return slots, nil
}

// UpdateSubject defines what information may be provided to modify an
// existing Subject. Empty fields keep the original value; SectionID routes
// through the linker semantics (nil keeps, "" detaches, a value attaches).
type UpdateSubject struct {
	Code       string   `json:"subjectCode" validate:"omitempty,notblank"`
	Name       string   `json:"subjectName" validate:"omitempty,notblank"`
	Department string   `json:"department" validate:"omitempty,notblank"`
	Schedules  []string `json:"schedules"`
	SectionID  *string  `json:"sectionId"`
}

// Validate merges the patch into a copy of orig and returns the candidate.
func (us *UpdateSubject) Validate(orig Subject) (Subject, error) {
	sub := orig

	if code := core.CleanString(us.Code); code != "" {
		sub.Code = code
	}
	if name := core.CleanString(us.Name); name != "" {
		sub.Name = name
	}
	if dept := core.CleanString(us.Department); dept != "" {
		sub.Department = dept
	}
	if us.SectionID != nil {
		sub.SectionID = core.CleanString(*us.SectionID)
	}

	if err := core.Validate.Struct(us); err != nil {
		return Subject{}, err
	}

	if us.Schedules != nil {
		slots, err := section.ParseSlots(us.Schedules)
		if err != nil {
			return Subject{}, core.NewValidationError(err, core.FieldError{Field: "schedules", Error: err.Error()})
		}
		sub.Schedule = slots
	}
	return sub, nil
}
