// Package report collects scenario results and the diagnostics attached to
// them, and renders them as artifacts and console output.
package report

import (
	"sync"
	"time"
)

// Status is the pass/fail result of a scenario.
type Status string

const (
	// StatusPassed means the scenario body returned without error
	StatusPassed Status = "passed"
	// StatusFailed means the scenario body returned an error, panicked or timed out
	StatusFailed Status = "failed"
)

// ScenarioReport is the result of one scenario run. Annotation methods are
// safe for concurrent use while the scenario runs.
type ScenarioReport struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Suite       string        `json:"suite"`
	Status      Status        `json:"status"`
	Error       string        `json:"error,omitempty"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	Outcome     string        `json:"outcome,omitempty"`
	Annotations []Annotation  `json:"annotations"`

	mu sync.Mutex
}

// NewScenarioReport starts a report for a scenario.
func NewScenarioReport(id, name, suite string) *ScenarioReport {
	return &ScenarioReport{
		ID:          id,
		Name:        name,
		Suite:       suite,
		StartTime:   time.Now(),
		Annotations: []Annotation{},
	}
}

// Annotate appends a diagnostic.
func (r *ScenarioReport) Annotate(kind AnnotationType, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Annotations = append(r.Annotations, Annotation{Type: kind, Description: description})
}

// Annotated returns the descriptions of every annotation of a kind, in order.
func (r *ScenarioReport) Annotated(kind AnnotationType) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, a := range r.Annotations {
		if a.Type == kind {
			out = append(out, a.Description)
		}
	}
	return out
}

// SetOutcome records a consistency classification on the report.
func (r *ScenarioReport) SetOutcome(outcome string) {
	r.mu.Lock()
	r.Outcome = outcome
	r.mu.Unlock()
	r.Annotate(ConsistencyOutcome, outcome)
}

// Finish closes the report. A nil err means the scenario passed.
func (r *ScenarioReport) Finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = StatusPassed
}

// Passed reports whether the scenario passed.
func (r *ScenarioReport) Passed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Status == StatusPassed
}

// SuiteReport aggregates the scenarios of one run.
type SuiteReport struct {
	Name      string            `json:"name"`
	RunID     string            `json:"run_id"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Duration  time.Duration     `json:"duration"`
	Scenarios []*ScenarioReport `json:"scenarios"`
	Totals    Totals            `json:"totals"`
}

// Totals counts scenario results and diagnostics across a suite.
type Totals struct {
	Scenarios          int `json:"scenarios"`
	Passed             int `json:"passed"`
	Failed             int `json:"failed"`
	CleanupFailures    int `json:"cleanup_failures"`
	UnresolvedOverlays int `json:"unresolved_overlays"`
}

// NewSuiteReport starts a suite report.
func NewSuiteReport(name, runID string) *SuiteReport {
	return &SuiteReport{
		Name:      name,
		RunID:     runID,
		StartTime: time.Now(),
		Scenarios: []*ScenarioReport{},
	}
}

// Finish records the scenario reports, in order, and computes totals.
func (s *SuiteReport) Finish(scenarios []*ScenarioReport) {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.Scenarios = scenarios

	totals := Totals{Scenarios: len(scenarios)}
	for _, r := range scenarios {
		if r.Passed() {
			totals.Passed++
		} else {
			totals.Failed++
		}
		totals.CleanupFailures += len(r.Annotated(CleanupFailure))
		totals.UnresolvedOverlays += len(r.Annotated(OverlayUnresolved))
	}
	s.Totals = totals
}

// Failed reports whether any scenario failed. Diagnostics do not count.
func (s *SuiteReport) Failed() bool {
	return s.Totals.Failed > 0
}
