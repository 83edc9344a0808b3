package subject

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
)

const writeMaxRetries = 3

// Service owns Subject lifecycle and the Subject-Section link. Attaching a
// subject to a section, or editing an attached subject's schedule,
// re-validates conflicts against the section's instructor and room before
// anything is written.
type Service struct {
	repo         Repository
	sections     section.Repository
	log          core.Logger
	storeTimeout time.Duration
}

func NewService(repo Repository, sections section.Repository, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:         repo,
		sections:     sections,
		log:          logger,
		storeTimeout: conf.Database.Timeout,
	}
}

func storeCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	slots, err := ns.Validate()
	if err != nil {
		return Subject{}, err
	}
	if err = section.ValidateSlots(slots); err != nil {
		return Subject{}, err
	}

	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	defer cancel()

	if ns.SectionID != "" {
		sec, err := svc.sections.GetSectionByID(sctx, ns.SectionID)
		if err != nil {
			return Subject{}, err
		}
		if err = svc.checkConflicts(sctx, slots, "", sec); err != nil {
			return Subject{}, err
		}
	}

	now := time.Now().UTC()
	sub := Subject{
		ID:         uuid.NewString(),
		Code:       ns.Code,
		Name:       ns.Name,
		Department: ns.Department,
		Schedule:   slots,
		SectionID:  ns.SectionID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateSubject(sctx, sub)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Subject, error) {
	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	defer cancel()
	return svc.repo.GetSubjectByID(sctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Subject, error) {
	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	defer cancel()
	return svc.repo.QueryAllSubjects(sctx)
}

// Update merges the patch and re-validates; a sectionId change routes through
// the same conflict checks as Attach.
func (svc *Service) Update(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	for attempt := 0; attempt < writeMaxRetries; attempt++ {
		sctx, cancel := storeCtx(ctx, svc.storeTimeout)
		orig, err := svc.repo.GetSubjectByID(sctx, id)
		if err != nil {
			cancel()
			return Subject{}, err
		}

		sub, err := us.Validate(orig)
		if err != nil {
			cancel()
			return Subject{}, err
		}
		if err = section.ValidateSlots(sub.Schedule); err != nil {
			cancel()
			return Subject{}, err
		}

		if sub.IsAttached() {
			sec, err := svc.sections.GetSectionByID(sctx, sub.SectionID)
			if err != nil {
				cancel()
				return Subject{}, err
			}
			if err = svc.checkConflicts(sctx, sub.Schedule, sub.ID, sec); err != nil {
				cancel()
				return Subject{}, err
			}
		}

		sub.UpdatedAt = time.Now().UTC()
		updated, err := svc.repo.UpdateSubject(sctx, sub, orig.Version)
		cancel()
		if errors.Is(err, core.ErrStoreConflict) {
			continue
		}
		return updated, err
	}
	return Subject{}, core.ErrStoreConflict
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	defer cancel()

	if _, err := svc.repo.GetSubjectByID(sctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteSubject(sctx, id)
}

// Attach sets the weak reference to a section after validating the subject's
// schedule against the section's instructor and room commitments.
func (svc *Service) Attach(ctx context.Context, subjectID, sectionID string) (Subject, error) {
	for attempt := 0; attempt < writeMaxRetries; attempt++ {
		sctx, cancel := storeCtx(ctx, svc.storeTimeout)
		sub, err := svc.repo.GetSubjectByID(sctx, subjectID)
		if err != nil {
			cancel()
			return Subject{}, err
		}
		sec, err := svc.sections.GetSectionByID(sctx, sectionID)
		if err != nil {
			cancel()
			return Subject{}, err
		}

		if err = svc.checkConflicts(sctx, sub.Schedule, sub.ID, sec); err != nil {
			cancel()
			return Subject{}, err
		}

		sub.SectionID = sec.ID
		sub.UpdatedAt = time.Now().UTC()
		updated, err := svc.repo.UpdateSubject(sctx, sub, sub.Version)
		cancel()
		if errors.Is(err, core.ErrStoreConflict) {
			continue
		}
		return updated, err
	}
	return Subject{}, core.ErrStoreConflict
}

// Detach clears the weak reference. It never fails on link state; a detached
// subject stays detached.
func (svc *Service) Detach(ctx context.Context, subjectID string) (Subject, error) {
	for attempt := 0; attempt < writeMaxRetries; attempt++ {
		sctx, cancel := storeCtx(ctx, svc.storeTimeout)
		sub, err := svc.repo.GetSubjectByID(sctx, subjectID)
		if err != nil {
			cancel()
			return Subject{}, err
		}
		if !sub.IsAttached() {
			cancel()
			return sub, nil
		}

		sub.SectionID = ""
		sub.UpdatedAt = time.Now().UTC()
		updated, err := svc.repo.UpdateSubject(sctx, sub, sub.Version)
		cancel()
		if errors.Is(err, core.ErrStoreConflict) {
			continue
		}
		return updated, err
	}
	return Subject{}, core.ErrStoreConflict
}

// UpdateSchedule replaces the subject's slots, re-validating against the
// attached section's instructor and room (if any).
func (svc *Service) UpdateSchedule(ctx context.Context, subjectID string, raws []string) (Subject, error) {
	slots, err := section.ParseSlots(raws)
	if err != nil {
		return Subject{}, core.NewValidationError(err, core.FieldError{Field: "schedules", Error: err.Error()})
	}
	if err = section.ValidateSlots(slots); err != nil {
		return Subject{}, err
	}

	for attempt := 0; attempt < writeMaxRetries; attempt++ {
		sctx, cancel := storeCtx(ctx, svc.storeTimeout)
		sub, err := svc.repo.GetSubjectByID(sctx, subjectID)
		if err != nil {
			cancel()
			return Subject{}, err
		}

		if sub.IsAttached() {
			sec, err := svc.sections.GetSectionByID(sctx, sub.SectionID)
			if err != nil {
				cancel()
				return Subject{}, err
			}
			if err = svc.checkConflicts(sctx, slots, sub.ID, sec); err != nil {
				cancel()
				return Subject{}, err
			}
		}

		sub.Schedule = slots
		sub.UpdatedAt = time.Now().UTC()
		updated, err := svc.repo.UpdateSubject(sctx, sub, sub.Version)
		cancel()
		if errors.Is(err, core.ErrStoreConflict) {
			continue
		}
		return updated, err
	}
	return Subject{}, core.ErrStoreConflict
}

// DetachBySection clears the weak reference on every subject attached to a
// deleted section. Dependents are detached, never cascade-deleted.
func (svc *Service) DetachBySection(ctx context.Context, sectionID string) error {
	sctx, cancel := storeCtx(ctx, svc.storeTimeout)
	attached, err := svc.repo.FilterSubjectsBySection(sctx, sectionID)
	cancel()
	if err != nil {
		return err
	}

	for _, sub := range attached {
		if _, err := svc.Detach(ctx, sub.ID); err != nil && !errors.Is(err, ErrNotFound) {
			svc.log.Error("detaching subject "+sub.ID+" from deleted section "+sectionID, err)
			return err
		}
	}
	return nil
}

// checkConflicts gathers the instructor's and room's other commitments —
// their other sections plus the subjects attached to any of them — and runs
// the pairwise overlap checks. The target section's own slots are excluded: a
// subject taught within a section naturally coincides with its meeting times.
func (svc *Service) checkConflicts(ctx context.Context, slots []section.ScheduleSlot, candidateID string, sec section.Section) error {
	instructorCms, err := svc.gatherCommitments(ctx, sec, candidateID, true)
	if err != nil {
		return err
	}
	if err = section.CheckInstructorConflict(slots, candidateID, instructorCms); err != nil {
		return err
	}

	roomCms, err := svc.gatherCommitments(ctx, sec, candidateID, false)
	if err != nil {
		return err
	}
	return section.CheckRoomConflict(slots, candidateID, roomCms)
}

func (svc *Service) gatherCommitments(ctx context.Context, sec section.Section, excludeSubjectID string, byInstructor bool) ([]section.Commitment, error) {
	var secs []section.Section
	var err error
	if byInstructor {
		secs, err = svc.sections.FilterSectionsByInstructor(ctx, sec.InstructorID)
	} else {
		secs, err = svc.sections.FilterSectionsByRoom(ctx, sec.Room)
	}
	if err != nil {
		return nil, err
	}

	var cms []section.Commitment
	for i := range secs {
		if secs[i].ID != sec.ID {
			cms = append(cms, secs[i].Commitment())
		}
		// subjects attached to the target section still count as "other" commitments
		subs, err := svc.repo.FilterSubjectsBySection(ctx, secs[i].ID)
		if err != nil {
			return nil, err
		}
		for j := range subs {
			if subs[j].ID == excludeSubjectID {
				continue
			}
			cms = append(cms, subs[j].Commitment())
		}
	}
	return cms, nil
}
