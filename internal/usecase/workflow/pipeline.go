// Package workflow turns a natural-language experiment description into a
// validated experiment document and runs it. The stages execute in a fixed
// order; each one checks its own inputs and records a message, so a failed
// stage leaves later stages to report what is missing.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain"
	exp "github.com/kailas-cloud/aerolab/internal/domain/experiment"
	engine "github.com/kailas-cloud/aerolab/internal/usecase/experiment"
)

// Stage names in execution order.
const (
	StageLoadPrompt            = "load_prompt"
	StageGenerateVariables     = "generate_variables"
	StageLoadConstraintsPrompt = "load_constraints_prompt"
	StageGenerateConstraints   = "generate_constraints"
	StageComposeExperiment     = "compose_experiment"
	StageRunExperiment         = "run_experiment"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
)

// ErrNoDescription signals a generate request without a description.
var ErrNoDescription = errors.New("experiment description is required")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Paths locates the prompt templates, the experiment template and where
// composed experiments are written.
type Paths struct {
	VariablesPrompt   string
	ConstraintsPrompt string
	Template          string
	ExperimentsDir    string
}

// DefaultPaths are relative to the working directory.
func DefaultPaths() Paths {
	return Paths{
		VariablesPrompt:   filepath.Join("prompts", "choose_optimisation_variables.txt"),
		ConstraintsPrompt: filepath.Join("prompts", "setup_constraints_and_objective.txt"),
		Template:          filepath.Join("experiments", "template.yaml"),
		ExperimentsDir:    "experiments",
	}
}

// Message is one entry of the stage log. Err holds the underlying failure
// when the stage hit one.
type Message struct {
	Stage   string
	Role    string
	Content string
	Err     error
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(m.Role), m.Content)
}

// Request describes the experiment to generate.
type Request struct {
	ID          string // generated when empty
	Description string
	OutputPath  string // report path, engine default when empty
	NoReset     bool
}

// Result carries every stage output. A field stays at its zero value when
// its stage did not produce anything.
type Result struct {
	ID                string
	VariablesPrompt   string
	Variables         *exp.VariableSet
	ConstraintsPrompt string
	Constraints       *exp.ConstraintSet
	ExperimentPath    string
	Run               *engine.Outcome
	Messages          []Message
}

// Succeeded reports whether the experiment ran to completion.
func (r *Result) Succeeded() bool { return r.Run != nil }

func (r *Result) add(stage, role, content string) {
	r.Messages = append(r.Messages, Message{Stage: stage, Role: role, Content: content})
}

func (r *Result) fail(stage, prefix string, err error) {
	r.Messages = append(r.Messages, Message{Stage: stage, Role: RoleSystem, Content: prefix + err.Error(), Err: err})
}

// Pipeline runs the generation stages.
type Pipeline struct {
	gen    domain.Generator
	runner Runner
	paths  Paths
	logger *zap.Logger
}

// New creates a Pipeline.
func New(gen domain.Generator, runner Runner, paths Paths, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{gen: gen, runner: runner, paths: paths, logger: logger}
}

// Prompt is the text sent to the model for one template.
func Prompt(template, description string) string {
	return "\n" + template + "\n\nEXPERIMENT DESCRIPTION: " + description + "\n\n"
}

// Run executes every stage in order and returns the accumulated state.
func (p *Pipeline) Run(ctx context.Context, req Request) *Result {
	res := &Result{ID: req.ID}
	if res.ID == "" {
		res.ID = "experiment-" + uuid.NewString()[:8]
	}
	logger := p.logger.With(zap.String("experiment", res.ID))

	p.loadPrompt(res)
	p.generateVariables(ctx, res, req.Description)
	p.loadConstraintsPrompt(res)
	p.generateConstraints(ctx, res, req.Description)
	p.compose(res, req.Description)
	p.run(ctx, res, req)

	for _, m := range res.Messages {
		logger.Debug("workflow stage", zap.String("stage", m.Stage), zap.String("role", m.Role))
	}
	logger.Info("workflow finished",
		zap.Bool("succeeded", res.Succeeded()),
		zap.String("experiment_path", res.ExperimentPath),
	)
	return res
}

func (p *Pipeline) loadPrompt(res *Result) {
	data, err := os.ReadFile(p.paths.VariablesPrompt)
	if err != nil {
		res.add(StageLoadPrompt, RoleSystem, "Error: Could not find choose_optimisation_variables.txt")
		return
	}
	res.VariablesPrompt = string(data)
	res.add(StageLoadPrompt, RoleSystem, "Loaded prompt template successfully")
}

func (p *Pipeline) generateVariables(ctx context.Context, res *Result, description string) {
	if res.VariablesPrompt == "" {
		res.add(StageGenerateVariables, RoleSystem, "Error: No prompt template loaded")
		return
	}
	schema, err := exp.VariablesSchema()
	if err != nil {
		res.fail(StageGenerateVariables, "Error generating variables: ", err)
		return
	}
	raw, err := p.gen.GenerateJSON(ctx, Prompt(res.VariablesPrompt, description), schema)
	if err != nil {
		res.fail(StageGenerateVariables, "Error generating variables: ", err)
		return
	}
	vs, err := exp.ParseVariables(raw)
	if err != nil {
		res.fail(StageGenerateVariables, "Error generating variables: ", err)
		return
	}
	res.Variables = &vs
	res.add(StageGenerateVariables, RoleAssistant, "Generated optimization variables: "+compact(raw))
}

func (p *Pipeline) loadConstraintsPrompt(res *Result) {
	data, err := os.ReadFile(p.paths.ConstraintsPrompt)
	if err != nil {
		res.add(StageLoadConstraintsPrompt, RoleSystem, "Error: Could not find setup_constraints_and_objective.txt")
		return
	}
	res.ConstraintsPrompt = string(data)
	res.add(StageLoadConstraintsPrompt, RoleSystem, "Loaded constraints prompt template successfully")
}

func (p *Pipeline) generateConstraints(ctx context.Context, res *Result, description string) {
	if res.ConstraintsPrompt == "" {
		res.add(StageGenerateConstraints, RoleSystem, "Error: No constraints prompt template loaded")
		return
	}
	schema, err := exp.ConstraintsSchema()
	if err != nil {
		res.fail(StageGenerateConstraints, "Error generating constraints: ", err)
		return
	}
	raw, err := p.gen.GenerateJSON(ctx, Prompt(res.ConstraintsPrompt, description), schema)
	if err != nil {
		res.fail(StageGenerateConstraints, "Error generating constraints: ", err)
		return
	}
	cs, err := exp.ParseConstraints(raw)
	if err != nil {
		res.fail(StageGenerateConstraints, "Error generating constraints: ", err)
		return
	}
	res.Constraints = &cs
	res.add(StageGenerateConstraints, RoleAssistant, "Generated constraints and objective: "+compact(raw))
}

func (p *Pipeline) compose(res *Result, description string) {
	if res.Variables == nil {
		res.add(StageComposeExperiment, RoleSystem, "Error: No generated variables to insert")
		return
	}
	if res.Constraints == nil {
		res.add(StageComposeExperiment, RoleSystem, "Error: No generated constraints to insert")
		return
	}
	path, err := p.writeExperiment(res, description)
	if err != nil {
		res.fail(StageComposeExperiment, "Error creating experiment: ", err)
		return
	}
	res.ExperimentPath = path
	res.add(StageComposeExperiment, RoleSystem, "Created experiment: "+path)
}

func (p *Pipeline) writeExperiment(res *Result, description string) (string, error) {
	if !idPattern.MatchString(res.ID) {
		return "", fmt.Errorf("%w: experiment id %q must be letters, digits, '-' or '_'", exp.ErrInvalidSpec, res.ID)
	}
	tmpl, err := exp.LoadTemplate(p.paths.Template)
	if err != nil {
		return "", err
	}
	spec := exp.Compose(tmpl, *res.Variables, *res.Constraints)
	spec.ID = res.ID
	if description != "" {
		spec.Description = description
	}
	path := filepath.Join(p.paths.ExperimentsDir, res.ID+".yaml")
	if err := exp.SaveSpec(path, spec); err != nil {
		return "", err
	}
	return path, nil
}

func (p *Pipeline) run(ctx context.Context, res *Result, req Request) {
	if res.ExperimentPath == "" {
		res.add(StageRunExperiment, RoleSystem, "Error: No experiment to run")
		return
	}
	out, err := p.runner.Run(ctx, engine.Request{
		ID:         res.ID,
		SpecPath:   res.ExperimentPath,
		OutputPath: req.OutputPath,
		Reset:      !req.NoReset,
	})
	if err != nil {
		res.fail(StageRunExperiment, "Experiment failed with error: ", err)
		return
	}
	res.Run = &out
	res.add(StageRunExperiment, RoleSystem, fmt.Sprintf(
		"Experiment completed successfully!\nOutput:\nCL = %.4f, CD = %.5f, objective %s = %.6g\nReport: %s\nPlot: %s",
		out.Aero.CL, out.Aero.CD, out.Spec.Objective.Quantity, out.Objective, out.ReportPath, out.PlotPath))
}

func compact(raw []byte) string {
	return strings.Join(strings.Fields(string(raw)), " ")
}
