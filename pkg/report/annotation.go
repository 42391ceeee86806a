package report

// AnnotationType classifies a diagnostic attached to a scenario report.
type AnnotationType string

const (
	// TestCaseID names the catalog test case a scenario implements
	TestCaseID AnnotationType = "test-case-id"
	// Cleanup records a fixture that was released
	Cleanup AnnotationType = "api-cleanup"
	// CleanupFailure records a fixture whose release failed
	CleanupFailure AnnotationType = "api-cleanup-failure"
	// OverlayUnresolved records an obstruction left in place after a resilience pass
	OverlayUnresolved AnnotationType = "overlay-unresolved"
	// ConsistencyOutcome records a hybrid verifier classification
	ConsistencyOutcome AnnotationType = "consistency-outcome"
	// Note is free-form
	Note AnnotationType = "note"
)

// Annotation is a diagnostic that never changes a scenario's status.
type Annotation struct {
	Type        AnnotationType `json:"type"`
	Description string         `json:"description"`
}

// Annotator receives diagnostics. Implementations must be safe for
// concurrent use.
type Annotator interface {
	Annotate(kind AnnotationType, description string)
}

// AnnotatorFunc adapts a function to Annotator.
type AnnotatorFunc func(kind AnnotationType, description string)

// Annotate calls f.
func (f AnnotatorFunc) Annotate(kind AnnotationType, description string) {
	f(kind, description)
}

// Discard drops every annotation.
var Discard Annotator = AnnotatorFunc(func(AnnotationType, string) {})
