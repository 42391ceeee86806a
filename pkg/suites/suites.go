// Package suites holds the end-to-end scenarios: backend checks through the
// API, browser journeys, and hybrid checks that cross the two.
package suites

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/entrhq/flowguard/pkg/scenario"
)

// Suite names.
const (
	SuiteAPI    = "api"
	SuiteUI     = "ui"
	SuiteHybrid = "hybrid"
	SuiteAll    = "all"
)

// All returns every scenario in a stable order.
func All() []scenario.Scenario {
	var out []scenario.Scenario
	out = append(out, API()...)
	out = append(out, UI()...)
	out = append(out, Hybrid()...)
	return out
}

// Select returns the scenarios of suite whose ID matches the glob pattern.
// An empty pattern matches everything.
func Select(suite, pattern string) ([]scenario.Scenario, error) {
	var candidates []scenario.Scenario
	switch suite {
	case "", SuiteAll:
		candidates = All()
	case SuiteAPI:
		candidates = API()
	case SuiteUI:
		candidates = UI()
	case SuiteHybrid:
		candidates = Hybrid()
	default:
		return nil, fmt.Errorf("unknown suite %q (want api, ui, hybrid or all)", suite)
	}

	if pattern == "" {
		return candidates, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario pattern %q: %w", pattern, err)
	}
	var out []scenario.Scenario
	for _, s := range candidates {
		if g.Match(s.ID) {
			out = append(out, s)
		}
	}
	return out, nil
}

// NeedsBrowser reports whether any scenario drives the UI.
func NeedsBrowser(scenarios []scenario.Scenario) bool {
	for _, s := range scenarios {
		if s.Browser {
			return true
		}
	}
	return false
}
