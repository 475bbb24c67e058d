package planstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store resolves plan documents against a repository root, using the three
// phase directories laid out in spec.md §6's "Persistent files" table.
type Store struct {
	Root string // absolute repository root

	FutureDir    string // e.g. docs/future
	ActiveDir    string // e.g. docs/exec-plans/active
	CompletedDir string // e.g. docs/exec-plans/completed
}

// NewStore returns a Store rooted at root using the conventional exec-plans
// directory layout.
func NewStore(root string) *Store {
	return &Store{
		Root:         root,
		FutureDir:    filepath.Join("docs", "future"),
		ActiveDir:    filepath.Join("docs", "exec-plans", "active"),
		CompletedDir: filepath.Join("docs", "exec-plans", "completed"),
	}
}

// Catalog is the result of a full directory walk: every plan bucketed by
// the phase it was found in.
type Catalog struct {
	Future    []*Plan
	Active    []*Plan
	Completed []*Plan
}

// All returns every plan across all three phases.
func (c *Catalog) All() []*Plan {
	out := make([]*Plan, 0, len(c.Future)+len(c.Active)+len(c.Completed))
	out = append(out, c.Future...)
	out = append(out, c.Active...)
	out = append(out, c.Completed...)
	return out
}

// ByID returns the plan with the given id, or nil.
func (c *Catalog) ByID(id string) *Plan {
	for _, p := range c.All() {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// datePrefixLen is the length of the "YYYY-MM-DD-" prefix that inferPlanID
// strips from a promoted/completed filename basename before using it as a
// fallback plan_id.
var datePrefixLen = len("2006-01-02-")

func inferPlanID(basename string) string {
	name := strings.TrimSuffix(basename, filepath.Ext(basename))
	if len(name) > datePrefixLen && isDatePrefix(name[:datePrefixLen]) {
		return name[datePrefixLen:]
	}
	return name
}

func isDatePrefix(s string) bool {
	if len(s) != datePrefixLen {
		return false
	}
	for i, c := range s {
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		case datePrefixLen - 1:
			if c != '-' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

func (s *Store) dirFor(phase Phase) string {
	switch phase {
	case PhaseFuture:
		return s.FutureDir
	case PhaseActive:
		return s.ActiveDir
	case PhaseCompleted:
		return s.CompletedDir
	}
	return ""
}

// loadPhaseDir walks one phase directory and parses every Markdown file.
func (s *Store) loadPhaseDir(phase Phase) ([]*Plan, error) {
	dir := s.dirFor(phase)
	absDir := filepath.Join(s.Root, dir)

	entries, err := os.ReadDir(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, absDir, err)
	}

	var plans []*Plan
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		relPath := filepath.Join(dir, e.Name())
		absPath := filepath.Join(s.Root, relPath)
		body, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, absPath, err)
		}

		md, err := ParseMetadata(string(body), inferPlanID(e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", relPath, err)
		}
		if err := validateSpecTargets(s.Root, md.SpecTargets); err != nil {
			return nil, fmt.Errorf("%s: %w", relPath, err)
		}

		plans = append(plans, &Plan{
			ID:       md.PlanID,
			Phase:    phase,
			Path:     relPath,
			Metadata: md,
			Body:     body,
		})
	}

	sort.Slice(plans, func(i, j int) bool { return plans[i].Path < plans[j].Path })
	return plans, nil
}

// LoadCatalog walks future/active/completed, parses every plan document,
// and enforces the global invariants from spec.md §3 and §8: unique plan
// IDs across all phases, and every dependency resolving to a plan present
// in that union.
func (s *Store) LoadCatalog() (*Catalog, error) {
	future, err := s.loadPhaseDir(PhaseFuture)
	if err != nil {
		return nil, err
	}
	active, err := s.loadPhaseDir(PhaseActive)
	if err != nil {
		return nil, err
	}
	completed, err := s.loadPhaseDir(PhaseCompleted)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{Future: future, Active: active, Completed: completed}

	seen := make(map[string]*Plan)
	for _, p := range cat.All() {
		if other, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("%w: %q in both %s and %s", ErrDuplicatePlanID, p.ID, other.Path, p.Path)
		}
		seen[p.ID] = p
	}

	for _, p := range cat.All() {
		for _, dep := range p.Metadata.Dependencies {
			if _, ok := seen[dep]; !ok {
				return nil, fmt.Errorf("%s: %w: %q depends on unknown plan %q", p.Path, ErrMissingDependency, p.ID, dep)
			}
		}
	}

	return cat, nil
}
