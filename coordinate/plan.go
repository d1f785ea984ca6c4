// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package coordinate

import (
	"fmt"

	"github.com/aqea/go-extractor/aqea"
)

// AlphabetRange is one slice of a language plan: a contiguous span of
// leading letters with a rough share of the language's entry volume.
type AlphabetRange struct {
	Start  string  `yaml:"start" json:"start"`
	End    string  `yaml:"end" json:"end"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// LanguagePlan describes how one language's extraction is split into
// work units.  Plans are loaded from the master's config file.
type LanguagePlan struct {
	Language         string          `yaml:"language" json:"language"`
	Source           string          `yaml:"source" json:"source"`
	EstimatedEntries int             `yaml:"estimated_entries" json:"estimated_entries"`
	MaxRetries       int             `yaml:"max_retries" json:"max_retries"`
	AlphabetRanges   []AlphabetRange `yaml:"alphabet_ranges" json:"alphabet_ranges"`
}

// Validate checks a plan for internal consistency before any units
// are built from it.
func (plan *LanguagePlan) Validate() error {
	if _, err := aqea.LanguageDomain(plan.Language); err != nil {
		return err
	}
	if plan.Source == "" {
		return fmt.Errorf("plan for %q has no source", plan.Language)
	}
	if len(plan.AlphabetRanges) == 0 {
		return fmt.Errorf("plan for %q has no alphabet ranges", plan.Language)
	}
	if plan.EstimatedEntries < 0 {
		return fmt.Errorf("plan for %q has negative estimated_entries", plan.Language)
	}
	for i, r := range plan.AlphabetRanges {
		if r.Start == "" || r.End == "" {
			return fmt.Errorf("plan for %q range %d has an empty bound", plan.Language, i)
		}
		if r.Start > r.End {
			return fmt.Errorf("plan for %q range %d has start %q after end %q", plan.Language, i, r.Start, r.End)
		}
		if r.Weight < 0 {
			return fmt.Errorf("plan for %q range %d has negative weight", plan.Language, i)
		}
		if i > 0 {
			prev := plan.AlphabetRanges[i-1]
			if NextPrefix(prev.End) > r.Start {
				return fmt.Errorf("plan for %q ranges %d and %d overlap", plan.Language, i-1, i)
			}
		}
	}
	return nil
}

// BuildWorkUnits expands a plan into concrete work units.  Unit ids
// are deterministic, "{source}_{language}_{index:02d}" in range order,
// so re-running a master against an existing store creates nothing
// new.  The estimated entry count is split across ranges by weight.
func (plan *LanguagePlan) BuildWorkUnits() ([]*WorkUnit, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	totalWeight := 0.0
	for _, r := range plan.AlphabetRanges {
		totalWeight += r.Weight
	}
	maxRetries := plan.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	units := make([]*WorkUnit, 0, len(plan.AlphabetRanges))
	for i, r := range plan.AlphabetRanges {
		estimated := 0
		if totalWeight > 0 {
			estimated = int(float64(plan.EstimatedEntries) * r.Weight / totalWeight)
		}
		units = append(units, &WorkUnit{
			WorkID:           fmt.Sprintf("%s_%s_%02d", plan.Source, plan.Language, i),
			Language:         plan.Language,
			Source:           plan.Source,
			RangeStart:       r.Start,
			RangeEnd:         r.End,
			EstimatedEntries: estimated,
			Status:           UnitPending,
			MaxRetries:       maxRetries,
		})
	}
	return units, nil
}
