// Package catalog reads curated scholarship catalogs from YAML files.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/david/scholar-match/internal/models"
)

type record struct {
	models.Scholarship `yaml:",inline"`
	Deadline           string `yaml:"deadline"`
}

type file struct {
	Scholarships []record `yaml:"scholarships"`
}

// Problem describes a catalog entry that could not be loaded.
type Problem struct {
	Index int
	ID    string
	Err   error
}

func (p Problem) Error() string {
	if p.ID == "" {
		return fmt.Sprintf("entry %d: %v", p.Index, p.Err)
	}
	return fmt.Sprintf("entry %d (%s): %v", p.Index, p.ID, p.Err)
}

var (
	ErrMissingID   = errors.New("missing id")
	ErrMissingName = errors.New("missing name")
	ErrDuplicateID = errors.New("duplicate id")
)

// Load decodes a catalog document. Entries that fail validation are
// reported as problems and left out; the rest are returned in file order.
func Load(r io.Reader) ([]models.Scholarship, []Problem, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("decode catalog: %w", err)
	}

	out := make([]models.Scholarship, 0, len(doc.Scholarships))
	var problems []Problem
	seen := make(map[string]bool, len(doc.Scholarships))
	for i, rec := range doc.Scholarships {
		sch := rec.Scholarship
		sch.ID = strings.TrimSpace(sch.ID)
		sch.Name = strings.TrimSpace(sch.Name)
		switch {
		case sch.ID == "":
			problems = append(problems, Problem{Index: i, Err: ErrMissingID})
			continue
		case sch.Name == "":
			problems = append(problems, Problem{Index: i, ID: sch.ID, Err: ErrMissingName})
			continue
		case seen[sch.ID]:
			problems = append(problems, Problem{Index: i, ID: sch.ID, Err: ErrDuplicateID})
			continue
		}
		deadline, err := ParseDeadline(rec.Deadline)
		if err != nil {
			problems = append(problems, Problem{Index: i, ID: sch.ID, Err: err})
			continue
		}
		sch.Deadline = deadline
		seen[sch.ID] = true
		out = append(out, sch)
	}
	return out, problems, nil
}

// LoadFile is Load for a path on disk.
func LoadFile(path string) ([]models.Scholarship, []Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Load(f)
}
