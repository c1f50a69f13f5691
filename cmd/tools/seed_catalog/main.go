// Command seed_catalog upserts scholarships from a YAML file into the catalog.
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/catalog"
	"github.com/david/scholar-match/internal/config"
	"github.com/david/scholar-match/internal/db"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	file := flag.String("file", "catalog.yaml", "catalog YAML file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	scholarships, problems, err := catalog.LoadFile(*file)
	if err != nil {
		log.Fatalf("load %s: %v", *file, err)
	}
	for _, p := range problems {
		log.Printf("skipping %v", p)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, zap.NewNop()); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	store := db.NewStore(pool)
	upserted := 0
	for _, sch := range scholarships {
		if err := store.UpsertScholarship(ctx, sch); err != nil {
			log.Printf("upsert %s failed: %v", sch.ID, err)
			continue
		}
		upserted++
	}
	log.Printf("Upserted %d of %d scholarships from %s", upserted, len(scholarships)+len(problems), *file)
}
