package section

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
)

// Coordinator serializes roster mutations per section. It owns only the
// EnrolledStudents field (and the status derived from it); everything else on
// a Section belongs to the registry.
//
// Serialization relies on the store's optimistic version check: the section
// is read, checked and written back with its read version; a lost race
// surfaces core.ErrStoreConflict and the whole read-check-write cycle is
// retried against fresh state. Two concurrent enrollments into the last seat
// can therefore never both commit. Either the full transition (membership +
// status) commits, or nothing does.
type Coordinator struct {
	repo         Repository
	log          core.Logger
	storeTimeout time.Duration
}

func NewCoordinator(repo Repository, logger core.Logger, conf *core.Config) *Coordinator {
	return &Coordinator{
		repo:         repo,
		log:          logger,
		storeTimeout: conf.Database.Timeout,
	}
}

// Enroll adds a student to the section's roster, enforcing the capacity and
// duplicate-enrollment invariants. Safe to retry after a timeout: a retry
// that finds the student already present returns ErrAlreadyEnrolled rather
// than enrolling twice.
func (c *Coordinator) Enroll(ctx context.Context, sectionID, studentID string) (Section, error) {
	studentID = core.CleanString(studentID)
	if studentID == "" {
		return Section{}, core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: "this field is required"})
	}

	for attempt := 0; attempt < writeMaxRetries; attempt++ {
		sctx, cancel := storeCtx(ctx, c.storeTimeout)
		sec, err := c.repo.GetSectionByID(sctx, sectionID)
		if err != nil {
			cancel()
			return Section{}, err
		}
		if err = sec.CheckInvariants(); err != nil {
			cancel()
			c.log.Error(err.Error(), err)
			return Section{}, err
		}

		switch {
		case sec.Status == StatusInactive:
			cancel()
			return Section{}, ErrSectionInactive
		case sec.IsEnrolled(studentID):
			cancel()
			return Section{}, ErrAlreadyEnrolled
		case sec.IsFull():
			cancel()
			return Section{}, ErrSectionFull
		}

		roster := make([]string, 0, len(sec.EnrolledStudents)+1)
		roster = append(roster, sec.EnrolledStudents...)
		sec.EnrolledStudents = append(roster, studentID)
		sec.RefreshStatus()
		sec.UpdatedAt = time.Now().UTC()

		updated, err := c.repo.UpdateSection(sctx, sec, sec.Version)
		cancel()
		if errors.Is(err, core.ErrStoreConflict) {
			continue
		}
		return updated, err
	}
	return Section{}, core.ErrStoreConflict
}

// Unenroll removes a student from the section's roster and re-derives the
// status; dropping below capacity flips "full" back to "active".
func (c *Coordinator) Unenroll(ctx context.Context, sectionID, studentID string) (Section, error) {
	studentID = core.CleanString(studentID)
	if studentID == "" {
		return Section{}, core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: "this field is required"})
	}

	for attempt := 0; attempt < writeMaxRetries; attempt++ {
		sctx, cancel := storeCtx(ctx, c.storeTimeout)
		sec, err := c.repo.GetSectionByID(sctx, sectionID)
		if err != nil {
			cancel()
			return Section{}, err
		}
		if err = sec.CheckInvariants(); err != nil {
			cancel()
			c.log.Error(err.Error(), err)
			return Section{}, err
		}

		if !sec.IsEnrolled(studentID) {
			cancel()
			return Section{}, ErrNotEnrolled
		}

		roster := make([]string, 0, len(sec.EnrolledStudents)-1)
		for _, id := range sec.EnrolledStudents {
			if id != studentID {
				roster = append(roster, id)
			}
		}
		sec.EnrolledStudents = roster
		sec.RefreshStatus()
		sec.UpdatedAt = time.Now().UTC()

		updated, err := c.repo.UpdateSection(sctx, sec, sec.Version)
		cancel()
		if errors.Is(err, core.ErrStoreConflict) {
			continue
		}
		return updated, err
	}
	return Section{}, core.ErrStoreConflict
}
