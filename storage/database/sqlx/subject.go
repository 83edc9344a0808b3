package sqlxrepos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/core/subject"
)

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *sqlx.DB) subject.Repository {
	return &subjectRepository{db: db}
}

type subjectRow struct {
	ID         string         `db:"id"`
	Code       string         `db:"code"`
	Name       string         `db:"name"`
	Department string         `db:"department"`
	Schedules  pq.StringArray `db:"schedules"`
	SectionID  sql.NullString `db:"section_id"`
	Version    int            `db:"version"`
	CreatedAt  sql.NullTime   `db:"created_at"`
	UpdatedAt  sql.NullTime   `db:"updated_at"`
}

func newSubjectRow(sub subject.Subject) subjectRow {
	return subjectRow{
		ID:         sub.ID,
		Code:       sub.Code,
		Name:       sub.Name,
		Department: sub.Department,
		Schedules:  pq.StringArray(section.SlotStrings(sub.Schedule)),
		SectionID:  sql.NullString{String: sub.SectionID, Valid: sub.SectionID != ""},
		Version:    sub.Version,
		CreatedAt:  sql.NullTime{Time: sub.CreatedAt, Valid: true},
		UpdatedAt:  sql.NullTime{Time: sub.UpdatedAt, Valid: true},
	}
}

func (row *subjectRow) subject() (subject.Subject, error) {
	slots, err := section.ParseSlots(row.Schedules)
	if err != nil {
		return subject.Subject{}, err
	}
	return subject.Subject{
		ID:         row.ID,
		Code:       row.Code,
		Name:       row.Name,
		Department: row.Department,
		Schedule:   slots,
		SectionID:  row.SectionID.String,
		Version:    row.Version,
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}, nil
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	sub.Version = 1
	row := newSubjectRow(sub)

	q := `
INSERT INTO subject (id, code, name, department, schedules, section_id, version, created_at, updated_at)
VALUES (:id, :code, :name, :department, :schedules, :section_id, :version, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return subject.Subject{}, storeErr(err)
	}
	return sub, nil
}

func (repo *subjectRepository) GetSubjectByID(ctx context.Context, id string) (subject.Subject, error) {
	var row subjectRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM subject WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return subject.Subject{}, subject.ErrNotFound
		}
		return subject.Subject{}, storeErr(err)
	}
	return row.subject()
}

func (repo *subjectRepository) querySubjects(ctx context.Context, q string, args ...interface{}) ([]subject.Subject, error) {
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, storeErr(err)
	}

	subs := make([]subject.Subject, 0, len(rows))
	for i := range rows {
		sub, err := rows[i].subject()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (repo *subjectRepository) QueryAllSubjects(ctx context.Context) ([]subject.Subject, error) {
	return repo.querySubjects(ctx, `SELECT * FROM subject ORDER BY code`)
}

func (repo *subjectRepository) FilterSubjectsBySection(ctx context.Context, sectionID string) ([]subject.Subject, error) {
	return repo.querySubjects(ctx, `SELECT * FROM subject WHERE section_id = $1`, sectionID)
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject, expectedVersion int) (subject.Subject, error) {
	sub.Version = expectedVersion + 1
	row := newSubjectRow(sub)

	q := `
UPDATE subject
SET code = :code, name = :name, department = :department, schedules = :schedules,
    section_id = :section_id, version = :version, updated_at = :updated_at
WHERE id = :id AND version = :expected_version`
	res, err := repo.db.NamedExecContext(ctx, q, struct {
		subjectRow
		ExpectedVersion int `db:"expected_version"`
	}{row, expectedVersion})
	if err != nil {
		return subject.Subject{}, storeErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return subject.Subject{}, storeErr(err)
	}
	if n == 0 {
		var exists bool
		if err = repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM subject WHERE id = $1)`, sub.ID); err != nil {
			return subject.Subject{}, storeErr(err)
		}
		if !exists {
			return subject.Subject{}, subject.ErrNotFound
		}
		return subject.Subject{}, core.ErrStoreConflict
	}
	return sub, nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id)
	if err != nil {
		return storeErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subject.ErrNotFound
	}
	return nil
}
