package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSuite() *SuiteReport {
	suite := NewSuiteReport("api", "run-1")

	ok := NewScenarioReport("API-USER-001", "Create account", "api")
	ok.Annotate(TestCaseID, "API-USER-001")
	ok.Annotate(Cleanup, "Deleted test account: e1@test.com")
	ok.Finish(nil)

	failed := NewScenarioReport("API-USER-002", "Duplicate | account", "api")
	failed.Annotate(CleanupFailure, "Failed to delete account e2@test.com: transport error")
	failed.Annotate(OverlayUnresolved, "vignette-close at frame depth 1 after 1 attempt")
	failed.Finish(errors.New("expected code 400, got 201"))

	suite.Finish([]*ScenarioReport{ok, failed})
	return suite
}

func TestScenarioReport_Finish(t *testing.T) {
	r := NewScenarioReport("X-1", "x", "api")
	assert.Empty(t, r.Status)

	r.Finish(nil)
	assert.True(t, r.Passed())
	assert.Equal(t, StatusPassed, r.Status)
	assert.Empty(t, r.Error)

	r.Finish(errors.New("boom"))
	assert.False(t, r.Passed())
	assert.Equal(t, "boom", r.Error)
	assert.False(t, r.EndTime.Before(r.StartTime))
}

func TestScenarioReport_ConcurrentAnnotate(t *testing.T) {
	r := NewScenarioReport("X-1", "x", "api")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Annotate(Note, "n")
		}()
	}
	wg.Wait()

	assert.Len(t, r.Annotated(Note), 50)
}

func TestScenarioReport_SetOutcome(t *testing.T) {
	r := NewScenarioReport("HYBRID-001", "vanishing user", "hybrid")
	r.SetOutcome("SESSION_INVALIDATED")

	assert.Equal(t, "SESSION_INVALIDATED", r.Outcome)
	assert.Equal(t, []string{"SESSION_INVALIDATED"}, r.Annotated(ConsistencyOutcome))
}

func TestSuiteReport_Totals(t *testing.T) {
	suite := sampleSuite()

	assert.Equal(t, Totals{
		Scenarios:          2,
		Passed:             1,
		Failed:             1,
		CleanupFailures:    1,
		UnresolvedOverlays: 1,
	}, suite.Totals)
	assert.True(t, suite.Failed())
}

func TestSuiteReport_DiagnosticsDoNotFail(t *testing.T) {
	suite := NewSuiteReport("api", "run-1")
	r := NewScenarioReport("API-USER-001", "x", "api")
	r.Annotate(CleanupFailure, "leaked")
	r.Finish(nil)
	suite.Finish([]*ScenarioReport{r})

	assert.False(t, suite.Failed())
	assert.Equal(t, 1, suite.Totals.CleanupFailures)
}

func TestArtifactWriter_WriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	suite := sampleSuite()

	require.NoError(t, NewArtifactWriter(dir).WriteAll(suite))

	raw, err := os.ReadFile(filepath.Join(dir, "results.json"))
	require.NoError(t, err)
	var decoded struct {
		Name      string `json:"name"`
		Scenarios []struct {
			ID          string       `json:"id"`
			Status      Status       `json:"status"`
			Annotations []Annotation `json:"annotations"`
		} `json:"scenarios"`
		Totals Totals `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "api", decoded.Name)
	require.Len(t, decoded.Scenarios, 2)
	assert.Equal(t, StatusFailed, decoded.Scenarios[1].Status)
	assert.Contains(t, decoded.Scenarios[1].Annotations, Annotation{
		Type:        CleanupFailure,
		Description: "Failed to delete account e2@test.com: transport error",
	})
	assert.Equal(t, 1, decoded.Totals.Failed)

	md, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "1 of 2 scenarios failed")
	assert.Contains(t, string(md), "Duplicate \\| account")
	assert.Contains(t, string(md), "## Diagnostics")
	assert.Contains(t, string(md), "`api-cleanup-failure`")
}

func TestArtifactWriter_Formats(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, NewArtifactWriter(dir).Formats(false, true).WriteAll(sampleSuite()))

	_, err := os.Stat(filepath.Join(dir, "results.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "summary.md"))
	assert.NoError(t, err)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsole(&buf)
	suite := sampleSuite()

	console.Header("api", 2)
	for _, r := range suite.Scenarios {
		console.ScenarioFinished(r)
	}
	console.Summary(suite)

	out := buf.String()
	assert.Contains(t, out, "flowguard: api (2 scenarios)")
	assert.Contains(t, out, "API-USER-001")
	assert.Contains(t, out, "expected code 400, got 201")
	assert.Contains(t, out, "api-cleanup-failure")
	assert.Contains(t, out, "RUN SUMMARY")
	assert.Contains(t, out, "FAILED")
}

func TestAnnotatorFunc(t *testing.T) {
	var got []Annotation
	a := AnnotatorFunc(func(kind AnnotationType, description string) {
		got = append(got, Annotation{Type: kind, Description: description})
	})
	a.Annotate(Note, "hello")
	Discard.Annotate(Note, "dropped")

	assert.Equal(t, []Annotation{{Type: Note, Description: "hello"}}, got)
}
