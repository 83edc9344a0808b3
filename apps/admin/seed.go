package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/core/subject"
	logsvc "github.com/trezcool/darasa/services/logger"
)

// seed loads a small demo data set through the real services so every row
// passes the same validation and conflict checks as API traffic. Re-running
// it skips sections whose code already exists.
func (cli *commandLine) seed() error {
	seedLogger := logsvc.NewRollbarLogger(log.New(os.Stdout, "SEED : ", log.LstdFlags), cli.conf)
	seedLogger.Enable(false)

	secSvc := section.NewService(cli.secRepo, subject.NewCommitmentSource(cli.subRepo), seedLogger, cli.conf)
	enrollSvc := section.NewCoordinator(cli.secRepo, seedLogger, cli.conf)
	subSvc := subject.NewService(cli.subRepo, cli.secRepo, seedLogger, cli.conf)

	ctx := context.Background()

	sections := []section.NewSection{
		{
			Code:           "MATH101-A",
			Name:           "Calculus I - Section A",
			InstructorID:   "t-001",
			InstructorName: "Grace Wanjiru",
			Room:           "R101",
			Schedule:       []string{"Monday 08:00-10:00", "Wednesday 08:00-10:00"},
			MaxStudents:    30,
		},
		{
			Code:           "PHYS201-A",
			Name:           "Mechanics - Section A",
			InstructorID:   "t-002",
			InstructorName: "John Mwangi",
			Room:           "R102",
			Schedule:       []string{"Tuesday 10:00-12:00", "Thursday 10:00-12:00"},
			MaxStudents:    25,
		},
		{
			Code:           "CHEM101-B",
			Name:           "General Chemistry - Section B",
			InstructorID:   "t-001",
			InstructorName: "Grace Wanjiru",
			Room:           "LAB1",
			Schedule:       []string{"Friday 13:00-16:00"},
			MaxStudents:    20,
		},
	}

	secIDs := make(map[string]string, len(sections))
	for _, ns := range sections {
		sec, err := secSvc.Create(ctx, ns)
		if err != nil {
			if errors.Is(err, section.ErrCodeExists) {
				logger.Printf("section %s exists, skipping", ns.Code)
				continue
			}
			return fmt.Errorf("seeding section %s: %w", ns.Code, err)
		}
		secIDs[sec.Code] = sec.ID
		logger.Printf("created section %s (%s)", sec.Code, sec.ID)
	}

	for _, studentID := range []string{"s-100", "s-101", "s-102"} {
		if id, ok := secIDs["MATH101-A"]; ok {
			if _, err := enrollSvc.Enroll(ctx, id, studentID); err != nil {
				return fmt.Errorf("enrolling %s: %w", studentID, err)
			}
		}
	}

	subjects := []subject.NewSubject{
		{
			Code:       "MATH101",
			Name:       "Calculus I",
			Department: "Mathematics",
			Schedules:  []string{"Monday 08:00-10:00"},
			SectionID:  secIDs["MATH101-A"],
		},
		{
			Code:       "PHYS201",
			Name:       "Mechanics",
			Department: "Physics",
			Schedules:  []string{"Tuesday 10:00-12:00"},
		},
	}
	for _, ns := range subjects {
		sub, err := subSvc.Create(ctx, ns)
		if err != nil {
			return fmt.Errorf("seeding subject %s: %w", ns.Code, err)
		}
		logger.Printf("created subject %s (%s)", sub.Code, sub.ID)
	}

	logger.Println("seeding done")
	return nil
}
