package inmemdb

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/core/subject"
)

type subjectRepository struct {
	db *subjectTable
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db.subject}
}

func copySubject(sub *subject.Subject) subject.Subject {
	cp := *sub
	cp.Schedule = append([]section.ScheduleSlot(nil), sub.Schedule...)
	return cp
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	if err := ctxErr(ctx); err != nil {
		return subject.Subject{}, err
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub.Version = 1
	stored := copySubject(&sub)
	repo.db.table[sub.ID] = &stored
	return copySubject(&stored), nil
}

func (repo *subjectRepository) GetSubjectByID(ctx context.Context, id string) (subject.Subject, error) {
	if err := ctxErr(ctx); err != nil {
		return subject.Subject{}, err
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		return copySubject(sub), nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) QueryAllSubjects(ctx context.Context) ([]subject.Subject, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]subject.Subject, 0, len(repo.db.table))
	for _, sub := range repo.db.table {
		subs = append(subs, copySubject(sub))
	}
	return subs, nil
}

func (repo *subjectRepository) FilterSubjectsBySection(ctx context.Context, sectionID string) ([]subject.Subject, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var subs []subject.Subject
	for _, sub := range repo.db.table {
		if sub.SectionID == sectionID {
			subs = append(subs, copySubject(sub))
		}
	}
	return subs, nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject, expectedVersion int) (subject.Subject, error) {
	if err := ctxErr(ctx); err != nil {
		return subject.Subject{}, err
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[sub.ID]
	if !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	if orig.Version != expectedVersion {
		return subject.Subject{}, core.ErrStoreConflict
	}

	sub.Version = expectedVersion + 1
	stored := copySubject(&sub)
	repo.db.table[sub.ID] = &stored
	return copySubject(&stored), nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return subject.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
