// Command match runs one matching pass for a stored profile and prints the ranked result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/ai"
	"github.com/david/scholar-match/internal/config"
	"github.com/david/scholar-match/internal/db"
	"github.com/david/scholar-match/internal/matching"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	student := flag.String("student", "", "student id whose profile to match")
	fallbackOnly := flag.Bool("fallback-only", false, "skip the reasoning collaborator")
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

	profile, err := db.NewProfileStore(pool).GetProfile(ctx, studentID)
	if err != nil {
		log.Fatal(err)
	}
	catalog, err := db.NewStore(pool).Catalog(ctx)
	if err != nil {
		log.Fatal(err)
	}

	var client ai.Completer
	if !*fallbackOnly {
		ollama := ai.NewOllamaClient(cfg.Ollama.Host, cfg.Ollama.Model, cfg.Matching.Timeout+5*time.Second)
		ollama.Temperature = cfg.Ollama.Temperature
		client = ollama
	}
	engine := matching.NewEngine(client, cfg.Matching, zap.NewNop(), nil)

	start := time.Now()
	set := engine.ComputeMatches(ctx, profile, catalog)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("%s  source=%s %s  analyzed=%d  took=%s",
		set.ProfileIdentity, set.Source, set.FallbackReason, set.TotalScholarshipsAnalyzed, time.Since(start).Round(time.Millisecond)))
	t.AppendHeader(table.Row{"#", "Score", "Scholarship", "Deadline", "Reasons", "Concerns"})
	for i, m := range set.Matches {
		name, deadline := m.ScholarshipID, "-"
		if m.Scholarship != nil {
			name = m.Scholarship.Name
			if m.Scholarship.Deadline != nil {
				deadline = m.Scholarship.Deadline.Format(time.DateOnly)
			}
		}
		t.AppendRow(table.Row{i + 1, m.RelevanceScore, name, deadline, strings.Join(m.MatchReasons, "; "), strings.Join(m.PotentialConcerns, "; ")})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("high quality: %d", set.Stats.HighQualityMatches), fmt.Sprintf("average: %d", set.Stats.AverageMatchScore)})
	t.Render()
}
