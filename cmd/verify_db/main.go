package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/david/scholar-match/internal/db"
)

// verify_db reports how much of the catalog carries the fields the fallback scorer and
// the deadline ordering depend on.
func main() {
	ctx := context.Background()
	pool, err := db.Connect(ctx, os.Getenv("DATABASE_URL"), 1)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	var total, withCountries, withLevels, withDeadline, expired int
	err = pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE cardinality(countries) > 0),
			count(*) FILTER (WHERE cardinality(education_level) > 0),
			count(deadline),
			count(*) FILTER (WHERE deadline < NOW())
		FROM scholarships
	`).Scan(&total, &withCountries, &withLevels, &withDeadline, &expired)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	fmt.Printf("Total scholarships: %d\n", total)
	fmt.Printf("With countries: %d\n", withCountries)
	fmt.Printf("With education levels: %d\n", withLevels)
	fmt.Printf("With deadline: %d\n", withDeadline)
	fmt.Printf("Expired: %d\n", expired)

	var applications, duplicates int
	err = pool.QueryRow(ctx, `
		SELECT count(*), count(*) - count(DISTINCT (student_id, scholarship_id))
		FROM applications
	`).Scan(&applications, &duplicates)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	fmt.Printf("Applications: %d (duplicate pairs: %d)\n", applications, duplicates)
}
