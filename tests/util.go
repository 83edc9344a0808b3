package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/core/subject"
	logsvc "github.com/trezcool/darasa/services/logger"
)

// NewConfig returns a self-contained test configuration; nothing is read from
// the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Debug:     true,
		TestMode:  true,
		Env:       "TEST",
		Build:     "test",
		AppName:   "Darasa",
		SecretKey: "secret",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
		},
		Database: core.DatabaseConfig{
			Timeout: 2 * time.Second,
		},
	}
}

// NewLogger returns a disabled logger writing to nowhere.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

func CreateSection(
	t *testing.T,
	repo section.Repository,
	code, instructorID, room string,
	schedule []string,
	maxStudents int,
	students ...string,
) section.Section {
	t.Helper()

	slots, err := section.ParseSlots(schedule)
	if err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}

	now := time.Now().UTC()
	sec := section.Section{
		ID:               uuid.NewString(),
		Code:             code,
		Name:             code,
		InstructorID:     instructorID,
		InstructorName:   instructorID,
		Room:             room,
		Schedule:         slots,
		MaxStudents:      maxStudents,
		EnrolledStudents: append([]string{}, students...),
		Status:           section.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	sec.RefreshStatus()

	sec, err = repo.CreateSection(context.Background(), sec)
	if err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}
	return sec
}

func CreateSubject(
	t *testing.T,
	repo subject.Repository,
	code, department string,
	schedules []string,
	sectionID string,
) subject.Subject {
	t.Helper()

	slots, err := section.ParseSlots(schedules)
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}

	now := time.Now().UTC()
	sub := subject.Subject{
		ID:         uuid.NewString(),
		Code:       code,
		Name:       code,
		Department: department,
		Schedule:   slots,
		SectionID:  sectionID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	sub, err = repo.CreateSubject(context.Background(), sub)
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}
