package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/aerolab/internal/domain"
	engine "github.com/kailas-cloud/aerolab/internal/usecase/experiment"
)

const (
	variablesJSON   = `{"variables": [{"name": "chords"}, {"name": "alpha", "init": 5, "lower": 0, "upper": 30}]}`
	constraintsJSON = `{"constraints": [{"quantity": "CL", "op": "==", "value": 1}, {"quantity": "wing_area", "op": "=="}], "objective": {"quantity": "CD", "sense": "minimize"}}`
	templateYAML    = "id: template\ndescription: base\nvariables: []\nconstraints: []\nanalysis:\n  chordwise: 4\n"
)

type mockGenerator struct {
	prompts []string
	fn      func(schema domain.Schema) ([]byte, error)
}

func (m *mockGenerator) GenerateJSON(_ context.Context, prompt string, schema domain.Schema) ([]byte, error) {
	m.prompts = append(m.prompts, prompt)
	if m.fn != nil {
		return m.fn(schema)
	}
	switch schema.Name {
	case "variables":
		return []byte(variablesJSON), nil
	case "constraints":
		return []byte(constraintsJSON), nil
	}
	return nil, nil
}

type mockRunner struct {
	requests []engine.Request
	runFn    func(req engine.Request) (engine.Outcome, error)
}

func (m *mockRunner) Run(_ context.Context, req engine.Request) (engine.Outcome, error) {
	m.requests = append(m.requests, req)
	if m.runFn != nil {
		return m.runFn(req)
	}
	return engine.Outcome{ID: req.ID, ReportPath: req.OutputPath}, nil
}

// workspace lays out prompts and the template under a temp dir.
func workspace(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	paths := Paths{
		VariablesPrompt:   filepath.Join(dir, "prompts", "choose_optimisation_variables.txt"),
		ConstraintsPrompt: filepath.Join(dir, "prompts", "setup_constraints_and_objective.txt"),
		Template:          filepath.Join(dir, "experiments", "template.yaml"),
		ExperimentsDir:    filepath.Join(dir, "experiments"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.VariablesPrompt), 0o755))
	require.NoError(t, os.MkdirAll(paths.ExperimentsDir, 0o755))
	require.NoError(t, os.WriteFile(paths.VariablesPrompt, []byte("Pick variables."), 0o644))
	require.NoError(t, os.WriteFile(paths.ConstraintsPrompt, []byte("Pick constraints."), 0o644))
	require.NoError(t, os.WriteFile(paths.Template, []byte(templateYAML), 0o644))
	return paths
}

func contents(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
