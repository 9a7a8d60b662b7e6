// Package loader reads fixture files describing editions and titles for the
// local sqlite backend.
package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"editionlinks/internal/domain"
	"editionlinks/internal/metadata"
)

// FixturesYAML represents the YAML file structure
type FixturesYAML struct {
	Version  string        `yaml:"version"`
	Titles   []TitleYAML   `yaml:"titles"`
	Editions []EditionYAML `yaml:"editions"`
}

// TitleYAML represents a newspaper title
type TitleYAML struct {
	PID       string `yaml:"pid,omitempty"`
	AvisID    string `yaml:"avis_id"`
	StartDate string `yaml:"start_date,omitempty"`
	EndDate   string `yaml:"end_date,omitempty"`
	State     string `yaml:"state,omitempty"`
}

// EditionYAML represents an edition. Metadata is either given verbatim in
// MODS or rendered from AvisID and DateIssued.
type EditionYAML struct {
	PID        string   `yaml:"pid,omitempty"`
	State      string   `yaml:"state,omitempty"`
	MODS       string   `yaml:"mods,omitempty"`
	AvisID     string   `yaml:"avis_id,omitempty"`
	DateIssued string   `yaml:"date_issued,omitempty"`
	Titles     []string `yaml:"titles,omitempty"`
}

// LoadYAML loads a fixture dataset from a YAML file
func LoadYAML(path string) (*domain.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseYAML(data)
}

// ParseYAML parses a fixture dataset from YAML bytes
func ParseYAML(data []byte) (*domain.Dataset, error) {
	var fixtures FixturesYAML
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return convertFixtures(&fixtures)
}

func convertFixtures(y *FixturesYAML) (*domain.Dataset, error) {
	ds := &domain.Dataset{}
	seen := make(map[string]string)

	claim := func(pid, kind string) error {
		if other, ok := seen[pid]; ok {
			return fmt.Errorf("duplicate pid %s (%s and %s)", pid, other, kind)
		}
		seen[pid] = kind
		return nil
	}

	for i, t := range y.Titles {
		if t.AvisID == "" {
			return nil, fmt.Errorf("title %d: avis_id is required", i)
		}
		state, err := parseState(t.State)
		if err != nil {
			return nil, fmt.Errorf("title %d: %w", i, err)
		}
		pid := pidOrNew(t.PID)
		if err := claim(pid, "title"); err != nil {
			return nil, err
		}
		ds.Titles = append(ds.Titles, domain.Title{
			PID:       pid,
			AvisID:    t.AvisID,
			StartDate: t.StartDate,
			EndDate:   t.EndDate,
			State:     state,
		})
	}

	for i, e := range y.Editions {
		pid := pidOrNew(e.PID)
		if err := claim(pid, "edition"); err != nil {
			return nil, err
		}
		state, err := parseState(e.State)
		if err != nil {
			return nil, fmt.Errorf("edition %s: %w", pid, err)
		}
		doc, err := editionMetadata(e)
		if err != nil {
			return nil, fmt.Errorf("edition %d (%s): %w", i, pid, err)
		}

		edition := domain.Edition{PID: pid, State: state, Metadata: doc}
		for _, title := range e.Titles {
			edition.Titles = append(edition.Titles, domain.ItemFromURI(strings.TrimSpace(title)))
		}
		ds.Editions = append(ds.Editions, edition)
	}

	return ds, nil
}

func editionMetadata(e EditionYAML) ([]byte, error) {
	if e.MODS != "" {
		if e.AvisID != "" || e.DateIssued != "" {
			return nil, fmt.Errorf("mods and avis_id/date_issued are mutually exclusive")
		}
		return []byte(e.MODS), nil
	}
	if e.AvisID == "" || e.DateIssued == "" {
		return nil, fmt.Errorf("either mods or both avis_id and date_issued are required")
	}
	return metadata.Render(domain.EditionMetadata{AvisID: e.AvisID, IssueDate: e.DateIssued})
}

func parseState(s string) (domain.State, error) {
	switch domain.State(strings.ToUpper(s)) {
	case "":
		return "", nil
	case domain.StateActive:
		return domain.StateActive, nil
	case domain.StateInactive:
		return domain.StateInactive, nil
	}
	return "", fmt.Errorf("invalid state %q, must be A or I", s)
}

// pidOrNew returns pid, or a fresh uuid PID when pid is empty
func pidOrNew(pid string) string {
	if pid = strings.TrimSpace(pid); pid != "" {
		return domain.FromURI(pid)
	}
	return "uuid:" + uuid.NewString()
}
