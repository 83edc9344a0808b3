// Package sqlxrepos implements the store contracts on PostgreSQL via sqlx.
//
// Writes use optimistic versioning: UPDATEs are guarded by the version read by
// the caller and bump it by one; a guard miss reports core.ErrStoreConflict so
// services can retry against fresh state.
package sqlxrepos

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
)

// pq unique_violation
const pqUniqueViolation = "23505"

type sectionRepository struct {
	db *sqlx.DB
}

var _ section.Repository = (*sectionRepository)(nil)

func NewSectionRepository(db *sqlx.DB) section.Repository {
	return &sectionRepository{db: db}
}

// sectionRow maps the section table. Schedule slots are stored in their
// canonical string form and re-parsed on read.
type sectionRow struct {
	ID               string         `db:"id"`
	Code             string         `db:"code"`
	Name             string         `db:"name"`
	InstructorID     string         `db:"instructor_id"`
	InstructorName   string         `db:"instructor_name"`
	Room             string         `db:"room"`
	Schedule         pq.StringArray `db:"schedule"`
	MaxStudents      int            `db:"max_students"`
	EnrolledStudents pq.StringArray `db:"enrolled_students"`
	Status           string         `db:"status"`
	Version          int            `db:"version"`
	CreatedAt        sql.NullTime   `db:"created_at"`
	UpdatedAt        sql.NullTime   `db:"updated_at"`
}

func newSectionRow(sec section.Section) sectionRow {
	return sectionRow{
		ID:               sec.ID,
		Code:             sec.Code,
		Name:             sec.Name,
		InstructorID:     sec.InstructorID,
		InstructorName:   sec.InstructorName,
		Room:             sec.Room,
		Schedule:         pq.StringArray(section.SlotStrings(sec.Schedule)),
		MaxStudents:      sec.MaxStudents,
		EnrolledStudents: append(pq.StringArray{}, sec.EnrolledStudents...),
		Status:           string(sec.Status),
		Version:          sec.Version,
		CreatedAt:        sql.NullTime{Time: sec.CreatedAt, Valid: true},
		UpdatedAt:        sql.NullTime{Time: sec.UpdatedAt, Valid: true},
	}
}

func (row *sectionRow) section() (section.Section, error) {
	slots, err := section.ParseSlots(row.Schedule)
	if err != nil {
		return section.Section{}, err
	}
	return section.Section{
		ID:               row.ID,
		Code:             row.Code,
		Name:             row.Name,
		InstructorID:     row.InstructorID,
		InstructorName:   row.InstructorName,
		Room:             row.Room,
		Schedule:         slots,
		MaxStudents:      row.MaxStudents,
		EnrolledStudents: append([]string{}, row.EnrolledStudents...),
		Status:           section.Status(row.Status),
		Version:          row.Version,
		CreatedAt:        row.CreatedAt.Time,
		UpdatedAt:        row.UpdatedAt.Time,
	}, nil
}

// storeErr translates driver errors into the store error taxonomy.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return core.ErrStoreTimeout
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		if strings.Contains(pqErr.Constraint, "section_code") {
			return section.ErrCodeExists
		}
	}
	return err
}

func (repo *sectionRepository) CheckCodeUniqueness(ctx context.Context, code string, excluded ...section.Section) error {
	q := `SELECT COUNT(*) FROM section WHERE code = $1`
	args := []interface{}{code}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, sec := range excluded {
			ids = append(ids, sec.ID)
		}
		q += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(ids))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return storeErr(err)
	}
	if count > 0 {
		return section.ErrCodeExists
	}
	return nil
}

func (repo *sectionRepository) CreateSection(ctx context.Context, sec section.Section) (section.Section, error) {
	sec.Version = 1
	row := newSectionRow(sec)

	// the unique index on code makes the uniqueness check atomic with the write
	q := `
INSERT INTO section (id, code, name, instructor_id, instructor_name, room, schedule,
                     max_students, enrolled_students, status, version, created_at, updated_at)
VALUES (:id, :code, :name, :instructor_id, :instructor_name, :room, :schedule,
        :max_students, :enrolled_students, :status, :version, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return section.Section{}, storeErr(err)
	}
	return sec, nil
}

func (repo *sectionRepository) GetSectionByID(ctx context.Context, id string) (section.Section, error) {
	var row sectionRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM section WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return section.Section{}, section.ErrNotFound
		}
		return section.Section{}, storeErr(err)
	}
	return row.section()
}

func (repo *sectionRepository) querySections(ctx context.Context, q string, args ...interface{}) ([]section.Section, error) {
	var rows []sectionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, storeErr(err)
	}

	secs := make([]section.Section, 0, len(rows))
	for i := range rows {
		sec, err := rows[i].section()
		if err != nil {
			return nil, err
		}
		secs = append(secs, sec)
	}
	return secs, nil
}

func (repo *sectionRepository) QueryAllSections(ctx context.Context) ([]section.Section, error) {
	return repo.querySections(ctx, `SELECT * FROM section ORDER BY code`)
}

func (repo *sectionRepository) FilterSectionsByInstructor(ctx context.Context, instructorID string) ([]section.Section, error) {
	return repo.querySections(ctx, `SELECT * FROM section WHERE instructor_id = $1`, instructorID)
}

func (repo *sectionRepository) FilterSectionsByRoom(ctx context.Context, room string) ([]section.Section, error) {
	return repo.querySections(ctx, `SELECT * FROM section WHERE room = $1`, room)
}

func (repo *sectionRepository) UpdateSection(ctx context.Context, sec section.Section, expectedVersion int) (section.Section, error) {
	sec.Version = expectedVersion + 1
	row := newSectionRow(sec)

	q := `
UPDATE section
SET code = :code, name = :name, instructor_id = :instructor_id, instructor_name = :instructor_name,
    room = :room, schedule = :schedule, max_students = :max_students,
    enrolled_students = :enrolled_students, status = :status, version = :version, updated_at = :updated_at
WHERE id = :id AND version = :expected_version`
	res, err := repo.db.NamedExecContext(ctx, q, struct {
		sectionRow
		ExpectedVersion int `db:"expected_version"`
	}{row, expectedVersion})
	if err != nil {
		return section.Section{}, storeErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return section.Section{}, storeErr(err)
	}
	if n == 0 {
		// missing row or stale version; disambiguate for the caller
		var exists bool
		if err = repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM section WHERE id = $1)`, sec.ID); err != nil {
			return section.Section{}, storeErr(err)
		}
		if !exists {
			return section.Section{}, section.ErrNotFound
		}
		return section.Section{}, core.ErrStoreConflict
	}
	return sec, nil
}

func (repo *sectionRepository) DeleteSection(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM section WHERE id = $1`, id)
	if err != nil {
		return storeErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return section.ErrNotFound
	}
	return nil
}
