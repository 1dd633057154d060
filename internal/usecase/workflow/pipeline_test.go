package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/aerolab/internal/domain"
	exp "github.com/kailas-cloud/aerolab/internal/domain/experiment"
	engine "github.com/kailas-cloud/aerolab/internal/usecase/experiment"
)

func TestPrompt_Format(t *testing.T) {
	assert.Equal(t, "\nTEMPLATE\n\nEXPERIMENT DESCRIPTION: make it fly\n\n", Prompt("TEMPLATE", "make it fly"))
}

func TestRun_HappyPath(t *testing.T) {
	paths := workspace(t)
	gen := &mockGenerator{}
	runner := &mockRunner{}
	p := New(gen, runner, paths, nil)

	res := p.Run(context.Background(), Request{ID: "drag-min", Description: "minimise drag"})

	require.True(t, res.Succeeded(), "messages: %v", contents(res.Messages))
	require.Len(t, res.Messages, 6)
	msgs := contents(res.Messages)
	assert.Equal(t, "Loaded prompt template successfully", msgs[0])
	assert.True(t, strings.HasPrefix(msgs[1], "Generated optimization variables: "))
	assert.Equal(t, "Loaded constraints prompt template successfully", msgs[2])
	assert.True(t, strings.HasPrefix(msgs[3], "Generated constraints and objective: "))
	assert.Equal(t, "Created experiment: "+res.ExperimentPath, msgs[4])
	assert.True(t, strings.HasPrefix(msgs[5], "Experiment completed successfully!"))

	stages := make([]string, len(res.Messages))
	for i, m := range res.Messages {
		stages[i] = m.Stage
	}
	assert.Equal(t, []string{
		StageLoadPrompt, StageGenerateVariables, StageLoadConstraintsPrompt,
		StageGenerateConstraints, StageComposeExperiment, StageRunExperiment,
	}, stages)
	assert.Equal(t, RoleAssistant, res.Messages[1].Role)

	// prompts carry the template and description
	require.Len(t, gen.prompts, 2)
	assert.Equal(t, Prompt("Pick variables.", "minimise drag"), gen.prompts[0])
	assert.Equal(t, Prompt("Pick constraints.", "minimise drag"), gen.prompts[1])

	// the composed document merges generated halves onto the template
	assert.Equal(t, filepath.Join(paths.ExperimentsDir, "drag-min.yaml"), res.ExperimentPath)
	spec, err := exp.LoadSpec(res.ExperimentPath)
	require.NoError(t, err)
	assert.Equal(t, "drag-min", spec.ID)
	assert.Equal(t, "minimise drag", spec.Description)
	assert.Equal(t, 4, spec.Analysis.Chordwise)
	assert.Len(t, spec.Variables, 2)
	assert.Len(t, spec.Constraints, 2)
	assert.Equal(t, exp.Objective{Quantity: exp.QtyCD, Sense: exp.Minimize}, spec.Objective)

	require.Len(t, runner.requests, 1)
	assert.Equal(t, engine.Request{ID: "drag-min", SpecPath: res.ExperimentPath, Reset: true}, runner.requests[0])
}

func TestRun_GeneratesID(t *testing.T) {
	p := New(&mockGenerator{}, &mockRunner{}, workspace(t), nil)

	res := p.Run(context.Background(), Request{Description: "x"})

	assert.True(t, strings.HasPrefix(res.ID, "experiment-"))
	assert.True(t, res.Succeeded())
}

func TestRun_EmptyGeneratedDocument(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		wantMsg string
	}{
		{"empty variables", "variables", "Error: No generated variables to insert"},
		{"empty constraints", "constraints", "Error: No generated constraints to insert"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := workspace(t)
			before, err := os.ReadFile(paths.Template)
			require.NoError(t, err)

			gen := &mockGenerator{fn: func(s domain.Schema) ([]byte, error) {
				if s.Name == tt.schema {
					return []byte("{}"), nil
				}
				if s.Name == "variables" {
					return []byte(variablesJSON), nil
				}
				return []byte(constraintsJSON), nil
			}}
			runner := &mockRunner{}

			res := New(gen, runner, paths, nil).Run(context.Background(), Request{ID: "empty", Description: "x"})

			assert.False(t, res.Succeeded())
			assert.Empty(t, res.ExperimentPath)
			assert.Contains(t, contents(res.Messages), tt.wantMsg)
			assert.Contains(t, contents(res.Messages), "Error: No experiment to run")
			assert.Empty(t, runner.requests, "runner must not be invoked")

			after, err := os.ReadFile(paths.Template)
			require.NoError(t, err)
			assert.Equal(t, before, after, "template must be untouched")
			assert.NoFileExists(t, filepath.Join(paths.ExperimentsDir, "empty.yaml"))
		})
	}
}

func TestRun_MissingPrompt(t *testing.T) {
	paths := workspace(t)
	require.NoError(t, os.Remove(paths.VariablesPrompt))
	gen := &mockGenerator{}

	res := New(gen, &mockRunner{}, paths, nil).Run(context.Background(), Request{ID: "x", Description: "x"})

	msgs := contents(res.Messages)
	assert.Equal(t, "Error: Could not find choose_optimisation_variables.txt", msgs[0])
	assert.Equal(t, "Error: No prompt template loaded", msgs[1])
	assert.Contains(t, msgs, "Error: No generated variables to insert")
	assert.Len(t, gen.prompts, 1, "only the constraints call should reach the model")
	assert.False(t, res.Succeeded())
}

func TestRun_GeneratorError(t *testing.T) {
	gen := &mockGenerator{fn: func(s domain.Schema) ([]byte, error) {
		if s.Name == "variables" {
			return nil, errors.New("quota exceeded")
		}
		return []byte(constraintsJSON), nil
	}}

	res := New(gen, &mockRunner{}, workspace(t), nil).Run(context.Background(), Request{ID: "x", Description: "x"})

	assert.Equal(t, "Error generating variables: quota exceeded", res.Messages[1].Content)
	assert.EqualError(t, res.Messages[1].Err, "quota exceeded")
	assert.NoError(t, res.Messages[3].Err)
	assert.Nil(t, res.Variables)
	assert.NotNil(t, res.Constraints)
	assert.False(t, res.Succeeded())
}

func TestRun_InvalidGeneratedVariables(t *testing.T) {
	gen := &mockGenerator{fn: func(s domain.Schema) ([]byte, error) {
		if s.Name == "variables" {
			return []byte(`{"variables": [{"name": "wingspan"}]}`), nil
		}
		return []byte(constraintsJSON), nil
	}}

	res := New(gen, &mockRunner{}, workspace(t), nil).Run(context.Background(), Request{ID: "x", Description: "x"})

	assert.True(t, strings.HasPrefix(res.Messages[1].Content, "Error generating variables: "))
	assert.False(t, res.Succeeded())
}

func TestRun_BadID(t *testing.T) {
	runner := &mockRunner{}

	res := New(&mockGenerator{}, runner, workspace(t), nil).Run(context.Background(), Request{ID: "../escape", Description: "x"})

	assert.True(t, strings.HasPrefix(res.Messages[4].Content, "Error creating experiment: "))
	assert.ErrorIs(t, res.Messages[4].Err, exp.ErrInvalidSpec)
	assert.Empty(t, runner.requests)
}

func TestRun_RunnerFailure(t *testing.T) {
	runner := &mockRunner{runFn: func(engine.Request) (engine.Outcome, error) {
		return engine.Outcome{}, errors.New("singular influence matrix")
	}}

	res := New(&mockGenerator{}, runner, workspace(t), nil).Run(context.Background(),
		Request{ID: "x", Description: "x", OutputPath: "out/report.md", NoReset: true})

	assert.Equal(t, "Experiment failed with error: singular influence matrix", res.Messages[5].Content)
	assert.False(t, res.Succeeded())
	require.Len(t, runner.requests, 1)
	assert.False(t, runner.requests[0].Reset)
	assert.Equal(t, "out/report.md", runner.requests[0].OutputPath)
}

func TestMessage_String(t *testing.T) {
	assert.Equal(t, "[SYSTEM] hello", Message{Role: RoleSystem, Content: "hello"}.String())
}
