// Package inmemdb provides an in-memory store implementation with the same
// optimistic-versioning semantics as the SQL store. It backs tests and the
// demo seeding CLI.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/core/subject"
)

type (
	sectionTable struct {
		mutex sync.RWMutex
		table map[string]*section.Section
	}

	subjectTable struct {
		mutex sync.RWMutex
		table map[string]*subject.Subject
	}

	DB struct {
		section *sectionTable
		subject *subjectTable
	}
)

func NewDB() *DB {
	return &DB{
		section: &sectionTable{table: make(map[string]*section.Section)},
		subject: &subjectTable{table: make(map[string]*subject.Subject)},
	}
}

// ctxErr maps a spent context onto the store error taxonomy.
func ctxErr(ctx context.Context) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return core.ErrStoreTimeout
	default:
		return ctx.Err()
	}
}
