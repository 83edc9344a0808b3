package section_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

func setupCoordinator(t *testing.T) (*section.Coordinator, section.Repository) {
	t.Helper()
	conf := testutil.NewConfig()
	repo := inmemdb.NewSectionRepository(inmemdb.NewDB())
	return section.NewCoordinator(repo, testutil.NewLogger(conf), conf), repo
}

func TestCoordinator_Enroll(t *testing.T) {
	svc, repo := setupCoordinator(t)
	ctx := context.Background()

	sec := testutil.CreateSection(t, repo, "MATH101-A", "t-001", "R101",
		[]string{"Monday 09:00-11:00"}, 2)

	t.Run("first student", func(t *testing.T) {
		updated, err := svc.Enroll(ctx, sec.ID, "s-1")
		if err != nil {
			t.Fatalf("Enroll(): %v", err)
		}
		if !updated.IsEnrolled("s-1") {
			t.Error("Enroll() student missing from roster")
		}
		if updated.Status != section.StatusActive {
			t.Errorf("Enroll() status = %q, want %q", updated.Status, section.StatusActive)
		}
	})

	t.Run("duplicate enrollment", func(t *testing.T) {
		if _, err := svc.Enroll(ctx, sec.ID, "s-1"); !errors.Is(err, section.ErrAlreadyEnrolled) {
			t.Errorf("Enroll() error = %v, want ErrAlreadyEnrolled", err)
		}
	})

	t.Run("last seat flips status to full", func(t *testing.T) {
		updated, err := svc.Enroll(ctx, sec.ID, "s-2")
		if err != nil {
			t.Fatalf("Enroll(): %v", err)
		}
		if updated.Status != section.StatusFull {
			t.Errorf("Enroll() status = %q, want %q", updated.Status, section.StatusFull)
		}
	})

	t.Run("full section rejects", func(t *testing.T) {
		if _, err := svc.Enroll(ctx, sec.ID, "s-3"); !errors.Is(err, section.ErrSectionFull) {
			t.Errorf("Enroll() error = %v, want ErrSectionFull", err)
		}
	})

	t.Run("blank student", func(t *testing.T) {
		var vErr *core.ValidationError
		if _, err := svc.Enroll(ctx, sec.ID, "  "); !errors.As(err, &vErr) {
			t.Errorf("Enroll() error = %v, want *core.ValidationError", err)
		}
	})

	t.Run("unknown section", func(t *testing.T) {
		if _, err := svc.Enroll(ctx, "nope", "s-1"); !errors.Is(err, section.ErrNotFound) {
			t.Errorf("Enroll() error = %v, want ErrNotFound", err)
		}
	})
}

func TestCoordinator_Enroll_inactive(t *testing.T) {
	svc, repo := setupCoordinator(t)
	ctx := context.Background()

	sec := testutil.CreateSection(t, repo, "MATH101-A", "t-001", "R101",
		[]string{"Monday 09:00-11:00"}, 30)
	sec.Status = section.StatusInactive
	if _, err := repo.UpdateSection(ctx, sec, sec.Version); err != nil {
		t.Fatalf("UpdateSection(): %v", err)
	}

	if _, err := svc.Enroll(ctx, sec.ID, "s-1"); !errors.Is(err, section.ErrSectionInactive) {
		t.Errorf("Enroll() error = %v, want ErrSectionInactive", err)
	}
}

func TestCoordinator_Unenroll(t *testing.T) {
	svc, repo := setupCoordinator(t)
	ctx := context.Background()

	sec := testutil.CreateSection(t, repo, "MATH101-A", "t-001", "R101",
		[]string{"Monday 09:00-11:00"}, 2, "s-1", "s-2")

	t.Run("frees a seat and reverts full", func(t *testing.T) {
		updated, err := svc.Unenroll(ctx, sec.ID, "s-1")
		if err != nil {
			t.Fatalf("Unenroll(): %v", err)
		}
		if updated.IsEnrolled("s-1") {
			t.Error("Unenroll() student still on roster")
		}
		if updated.Status != section.StatusActive {
			t.Errorf("Unenroll() status = %q, want %q", updated.Status, section.StatusActive)
		}
	})

	t.Run("not enrolled", func(t *testing.T) {
		if _, err := svc.Unenroll(ctx, sec.ID, "s-1"); !errors.Is(err, section.ErrNotEnrolled) {
			t.Errorf("Unenroll() error = %v, want ErrNotEnrolled", err)
		}
	})
}

// Two concurrent enrollments racing for the last seat: exactly one commits,
// the loser re-reads fresh state and reports the section full.
func TestCoordinator_Enroll_lastSeatRace(t *testing.T) {
	svc, repo := setupCoordinator(t)
	ctx := context.Background()

	sec := testutil.CreateSection(t, repo, "MATH101-A", "t-001", "R101",
		[]string{"Monday 09:00-11:00"}, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, studentID := range []string{"s-1", "s-2"} {
		wg.Add(1)
		go func(i int, studentID string) {
			defer wg.Done()
			_, errs[i] = svc.Enroll(ctx, sec.ID, studentID)
		}(i, studentID)
	}
	wg.Wait()

	var won, full int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, section.ErrSectionFull):
			full++
		default:
			t.Fatalf("Enroll() unexpected error: %v", err)
		}
	}
	if won != 1 || full != 1 {
		t.Fatalf("race outcome = %d success / %d full, want 1/1", won, full)
	}

	final, err := repo.GetSectionByID(ctx, sec.ID)
	if err != nil {
		t.Fatalf("GetSectionByID(): %v", err)
	}
	if len(final.EnrolledStudents) != 1 {
		t.Errorf("roster = %v, want exactly one student", final.EnrolledStudents)
	}
	if final.Status != section.StatusFull {
		t.Errorf("status = %q, want %q", final.Status, section.StatusFull)
	}
}
