package section

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
)

// writeMaxRetries bounds the optimistic-lock retry loop on versioned writes.
const writeMaxRetries = 3

// SubjectSource exposes the schedule commitments of the subjects attached to
// a section, so registry writes can check conflicts against both sides of the
// timetable without importing the subject package.
type SubjectSource interface {
	FilterCommitmentsBySection(ctx context.Context, sectionID string) ([]Commitment, error)
}

// Service is the section registry; it exclusively owns Section lifecycle and
// status. Roster mutations go through the Coordinator instead.
type Service struct {
	repo         Repository
	subjects     SubjectSource
	log          core.Logger
	storeTimeout time.Duration
}

func NewService(repo Repository, subjects SubjectSource, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:         repo,
		subjects:     subjects,
		log:          logger,
		storeTimeout: conf.Database.Timeout,
	}
}

// storeCtx bounds a store call with the configured timeout.
func storeCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

// Create validates all fields and the candidate schedule against the
// instructor's and room's existing commitments, then persists the section
// with an empty roster and "active" status.
func (svc *Service) Create(ctx context.Context, ns NewSection) (Section, error) {
	slots, err := ns.Validate()
	if err != nil {
		return Section{}, err
	}
	if err = ValidateSlots(slots); err != nil {
		return Section{}, err
	}

	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	defer cancel()

	if err = svc.repo.CheckCodeUniqueness(sctx, ns.Code); err != nil {
		return Section{}, err
	}
	if err = svc.checkConflicts(sctx, slots, "", ns.InstructorID, ns.Room); err != nil {
		return Section{}, err
	}

	now := time.Now().UTC()
	sec := Section{
		ID:               uuid.NewString(),
		Code:             ns.Code,
		Name:             ns.Name,
		InstructorID:     ns.InstructorID,
		InstructorName:   ns.InstructorName,
		Room:             ns.Room,
		Schedule:         slots,
		MaxStudents:      ns.MaxStudents,
		EnrolledStudents: []string{},
		Status:           StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	// the store re-checks code uniqueness atomically with the write
	return svc.repo.CreateSection(sctx, sec)
}

// Update re-validates any changed schedule/instructor/room/capacity field.
// Lowering maxStudents below the current roster size is rejected rather than
// silently truncating the roster.
func (svc *Service) Update(ctx context.Context, id string, us UpdateSection) (Section, error) {
	for attempt := 0; attempt < writeMaxRetries; attempt++ {
		sctx, cancel := storeCtx(ctx, svc.storeTimeout)
		orig, err := svc.repo.GetSectionByID(sctx, id)
		if err != nil {
			cancel()
			return Section{}, err
		}

		sec, err := us.Validate(orig)
		if err != nil {
			cancel()
			return Section{}, err
		}

		if sec.Code != orig.Code && len(orig.EnrolledStudents) > 0 {
			cancel()
			return Section{}, core.NewValidationError(nil, core.FieldError{
				Field: "sectionCode",
				Error: "code cannot change while students are enrolled",
			})
		}
		if sec.MaxStudents < len(orig.EnrolledStudents) {
			cancel()
			return Section{}, ErrCapacityBelowEnrollment
		}
		if err = ValidateSlots(sec.Schedule); err != nil {
			cancel()
			return Section{}, err
		}
		if sec.Code != orig.Code {
			if err = svc.repo.CheckCodeUniqueness(sctx, sec.Code, orig); err != nil {
				cancel()
				return Section{}, err
			}
		}
		if err = svc.checkConflicts(sctx, sec.Schedule, sec.ID, sec.InstructorID, sec.Room); err != nil {
			cancel()
			return Section{}, err
		}

		// a capacity change can flip full <-> active
		sec.RefreshStatus()
		sec.UpdatedAt = time.Now().UTC()

		updated, err := svc.repo.UpdateSection(sctx, sec, orig.Version)
		cancel()
		if errors.Is(err, core.ErrStoreConflict) {
			continue // lost the race; re-validate against fresh state
		}
		return updated, err
	}
	return Section{}, core.ErrStoreConflict
}

// SetStatus toggles a section between active and inactive; "full" is derived
// and can never be set directly. Deactivating a section that still has
// enrolled students succeeds but returns a non-fatal warning since it
// freezes further enrollment.
func (svc *Service) SetStatus(ctx context.Context, id string, status Status) (Section, string, error) {
	if status != StatusActive && status != StatusInactive {
		return Section{}, "", fmt.Errorf("%w: cannot set status to %q", ErrInvalidTransition, status)
	}

	for attempt := 0; attempt < writeMaxRetries; attempt++ {
		sctx, cancel := storeCtx(ctx, svc.storeTimeout)
		sec, err := svc.repo.GetSectionByID(sctx, id)
		if err != nil {
			cancel()
			return Section{}, "", err
		}

		sec.Status = status
		sec.RefreshStatus() // re-activating a full roster lands back on "full"
		sec.UpdatedAt = time.Now().UTC()

		var warning string
		if status == StatusInactive && len(sec.EnrolledStudents) > 0 {
			warning = fmt.Sprintf("section %s still has %d enrolled student(s); further enrollment is frozen",
				sec.Code, len(sec.EnrolledStudents))
		}

		updated, err := svc.repo.UpdateSection(sctx, sec, sec.Version)
		cancel()
		if errors.Is(err, core.ErrStoreConflict) {
			continue
		}
		return updated, warning, err
	}
	return Section{}, "", core.ErrStoreConflict
}

// Delete removes an empty section. Sections with enrolled students must be
// drained first; dependent subjects are detached by the subject service.
func (svc *Service) Delete(ctx context.Context, id string) error {
	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	defer cancel()

	sec, err := svc.repo.GetSectionByID(sctx, id)
	if err != nil {
		return err
	}
	if len(sec.EnrolledStudents) > 0 {
		return ErrSectionNotEmpty
	}
	return svc.repo.DeleteSection(sctx, id)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Section, error) {
	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	defer cancel()

	sec, err := svc.repo.GetSectionByID(sctx, id)
	if err != nil {
		return Section{}, err
	}
	if err = sec.CheckInvariants(); err != nil {
		svc.log.Error(err.Error(), err)
		return Section{}, err
	}
	return sec, nil
}

// QueryAll lists every section. Corrupted rows are logged and skipped here
// rather than poisoning the whole listing; single-entity reads and all
// mutations surface the violation instead.
func (svc *Service) QueryAll(ctx context.Context) ([]Section, error) {
	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	defer cancel()

	secs, err := svc.repo.QueryAllSections(sctx)
	if err != nil {
		return nil, err
	}
	return svc.auditSections(secs), nil
}

func (svc *Service) QueryByInstructor(ctx context.Context, instructorID string) ([]Section, error) {
	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	defer cancel()

	secs, err := svc.repo.FilterSectionsByInstructor(sctx, instructorID)
	if err != nil {
		return nil, err
	}
	return svc.auditSections(secs), nil
}

func (svc *Service) QueryByRoom(ctx context.Context, room string) ([]Section, error) {
	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	defer cancel()

	secs, err := svc.repo.FilterSectionsByRoom(sctx, room)
	if err != nil {
		return nil, err
	}
	return svc.auditSections(secs), nil
}

// auditSections drops and logs corrupted rows from a listing.
func (svc *Service) auditSections(secs []Section) []Section {
	out := secs[:0]
	for _, sec := range secs {
		if err := sec.CheckInvariants(); err != nil {
			svc.log.Error(err.Error(), err)
			continue
		}
		out = append(out, sec)
	}
	return out
}

// checkConflicts validates a candidate schedule against every section taught
// by the instructor and every section held in the room, plus the subjects
// attached to any of them, excluding the candidate itself.
func (svc *Service) checkConflicts(ctx context.Context, slots []ScheduleSlot, candidateID, instructorID, room string) error {
	byInstructor, err := svc.repo.FilterSectionsByInstructor(ctx, instructorID)
	if err != nil {
		return err
	}
	cms, err := svc.commitments(ctx, byInstructor, candidateID)
	if err != nil {
		return err
	}
	if err = CheckInstructorConflict(slots, candidateID, cms); err != nil {
		return err
	}

	byRoom, err := svc.repo.FilterSectionsByRoom(ctx, room)
	if err != nil {
		return err
	}
	if cms, err = svc.commitments(ctx, byRoom, candidateID); err != nil {
		return err
	}
	return CheckRoomConflict(slots, candidateID, cms)
}

// commitments folds each section's own slots plus its attached subjects'
// slots. Subjects attached to the candidate section are skipped: a subject
// taught within a section naturally coincides with its meeting times.
func (svc *Service) commitments(ctx context.Context, secs []Section, excludeSectionID string) ([]Commitment, error) {
	cms := make([]Commitment, 0, len(secs))
	for i := range secs {
		cms = append(cms, secs[i].Commitment())
		if secs[i].ID == excludeSectionID {
			continue
		}
		subCms, err := svc.subjects.FilterCommitmentsBySection(ctx, secs[i].ID)
		if err != nil {
			return nil, err
		}
		cms = append(cms, subCms...)
	}
	return cms, nil
}
