package inmemdb

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
)

type sectionRepository struct {
	db *sectionTable
}

var _ section.Repository = (*sectionRepository)(nil)

func NewSectionRepository(db *DB) section.Repository {
	return &sectionRepository{db: db.section}
}

// copySection detaches slice headers so callers never alias stored state.
func copySection(sec *section.Section) section.Section {
	cp := *sec
	cp.Schedule = append([]section.ScheduleSlot(nil), sec.Schedule...)
	cp.EnrolledStudents = append([]string{}, sec.EnrolledStudents...)
	return cp
}

func (repo *sectionRepository) checkCode(code string, excluded ...section.Section) error {
	for _, sec := range repo.db.table {
		if sec.Code != code {
			continue
		}
		var excl bool
		for _, ex := range excluded {
			if ex.ID == sec.ID {
				excl = true
				break
			}
		}
		if !excl {
			return section.ErrCodeExists
		}
	}
	return nil
}

func (repo *sectionRepository) CheckCodeUniqueness(ctx context.Context, code string, excluded ...section.Section) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.checkCode(code, excluded...)
}

func (repo *sectionRepository) CreateSection(ctx context.Context, sec section.Section) (section.Section, error) {
	if err := ctxErr(ctx); err != nil {
		return section.Section{}, err
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// uniqueness is re-checked atomically with the write
	if err := repo.checkCode(sec.Code); err != nil {
		return section.Section{}, err
	}

	sec.Version = 1
	stored := copySection(&sec)
	repo.db.table[sec.ID] = &stored
	return copySection(&stored), nil
}

func (repo *sectionRepository) GetSectionByID(ctx context.Context, id string) (section.Section, error) {
	if err := ctxErr(ctx); err != nil {
		return section.Section{}, err
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sec, ok := repo.db.table[id]; ok {
		return copySection(sec), nil
	}
	return section.Section{}, section.ErrNotFound
}

func (repo *sectionRepository) QueryAllSections(ctx context.Context) ([]section.Section, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	secs := make([]section.Section, 0, len(repo.db.table))
	for _, sec := range repo.db.table {
		secs = append(secs, copySection(sec))
	}
	return secs, nil
}

func (repo *sectionRepository) FilterSectionsByInstructor(ctx context.Context, instructorID string) ([]section.Section, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var secs []section.Section
	for _, sec := range repo.db.table {
		if sec.InstructorID == instructorID {
			secs = append(secs, copySection(sec))
		}
	}
	return secs, nil
}

func (repo *sectionRepository) FilterSectionsByRoom(ctx context.Context, room string) ([]section.Section, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var secs []section.Section
	for _, sec := range repo.db.table {
		if sec.Room == room {
			secs = append(secs, copySection(sec))
		}
	}
	return secs, nil
}

func (repo *sectionRepository) UpdateSection(ctx context.Context, sec section.Section, expectedVersion int) (section.Section, error) {
	if err := ctxErr(ctx); err != nil {
		return section.Section{}, err
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[sec.ID]
	if !ok {
		return section.Section{}, section.ErrNotFound
	}
	if orig.Version != expectedVersion {
		return section.Section{}, core.ErrStoreConflict
	}
	if sec.Code != orig.Code {
		if err := repo.checkCode(sec.Code, *orig); err != nil {
			return section.Section{}, err
		}
	}

	sec.Version = expectedVersion + 1
	stored := copySection(&sec)
	repo.db.table[sec.ID] = &stored
	return copySection(&stored), nil
}

func (repo *sectionRepository) DeleteSection(ctx context.Context, id string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return section.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
