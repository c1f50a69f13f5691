// Command applications prints a student's tracked applications and reminder summary.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/config"
	"github.com/david/scholar-match/internal/db"
	"github.com/david/scholar-match/internal/models"
	"github.com/david/scholar-match/internal/reminders"
	"github.com/david/scholar-match/internal/tracker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	student := flag.String("student", "", "student id")
	flag.Parse()

	studentID, err := uuid.Parse(*student)
	if err != nil {
		log.Fatalf("invalid -student: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	apps, err := tracker.New(db.NewApplicationRepository(pool), zap.NewNop()).ListApplications(ctx, studentID)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Scholarship", "Status", "Applied", "Updated", "Deadline"})
	for _, a := range apps {
		name, deadline := a.ScholarshipID, "-"
		if a.Scholarship != nil {
			name = a.Scholarship.Name
			if a.Scholarship.Deadline != nil {
				deadline = a.Scholarship.Deadline.Format(time.DateOnly)
			}
		}
		t.AppendRow(table.Row{name, a.Status, a.AppliedAt.Format(time.DateOnly), a.UpdatedAt.Format("2006-01-02 15:04"), deadline})
	}
	counts := tracker.StatusCounts(apps)
	t.AppendFooter(table.Row{
		"applied " + strconv.Itoa(counts[models.StatusApplied]),
		"under review " + strconv.Itoa(counts[models.StatusUnderReview]),
		"accepted " + strconv.Itoa(counts[models.StatusAccepted]),
		"rejected " + strconv.Itoa(counts[models.StatusRejected]),
		"",
	})
	t.Render()

	list, err := reminders.NewService(db.NewReminderRepository(pool), zap.NewNop()).List(ctx, studentID)
	if err != nil {
		log.Fatal(err)
	}
	r := table.NewWriter()
	r.SetOutputMirror(os.Stdout)
	r.AppendHeader(table.Row{"Upcoming", "Overdue", "Completed", "Due this week", "High priority"})
	r.AppendRow(table.Row{list.Summary.Upcoming, list.Summary.Overdue, list.Summary.Completed, list.Summary.DueThisWeek, list.Summary.HighPriority})
	r.Render()
}
