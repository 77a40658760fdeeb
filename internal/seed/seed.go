// Package seed loads the activity set the registry starts with.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/activities/internal/domain"
)

//go:embed activities.yaml
var defaultSeed []byte

type document struct {
	Activities []domain.Activity `yaml:"activities"`
}

// Default returns the built-in seed set.
func Default() ([]domain.Activity, error) {
	return Parse(defaultSeed)
}

// Load reads a seed file from path, or the built-in set when path is empty.
func Load(path string) ([]domain.Activity, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML seed document.
func Parse(raw []byte) ([]domain.Activity, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := Validate(doc.Activities); err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(doc.Activities))
	for _, a := range doc.Activities {
		out = append(out, a.Clone())
	}
	return out, nil
}

// Validate checks the seed invariants: unique non-empty names, positive
// capacity, and no repeated email within a roster.
func Validate(activities []domain.Activity) error {
	seen := make(map[string]struct{}, len(activities))
	var errs []error
	for i, a := range activities {
		if strings.TrimSpace(a.Name) == "" {
			errs = append(errs, fmt.Errorf("activity %d: name is required", i))
			continue
		}
		if _, dup := seen[a.Name]; dup {
			errs = append(errs, fmt.Errorf("activity %q: duplicate name", a.Name))
		}
		seen[a.Name] = struct{}{}
		if a.MaxParticipants <= 0 {
			errs = append(errs, fmt.Errorf("activity %q: max_participants must be > 0", a.Name))
		}
		emails := make(map[string]struct{}, len(a.Participants))
		for _, email := range a.Participants {
			if _, dup := emails[email]; dup {
				errs = append(errs, fmt.Errorf("activity %q: duplicate participant %s", a.Name, email))
			}
			emails[email] = struct{}{}
		}
	}
	return errors.Join(errs...)
}
