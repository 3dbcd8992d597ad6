package stage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/projectdiscovery/gologger"

	config "github.com/shii9/ReconTrail/internal/Config"
	ratelimit "github.com/shii9/ReconTrail/internal/Ratelimit"
	runner "github.com/shii9/ReconTrail/internal/Runner"
	webhook "github.com/shii9/ReconTrail/internal/Webhook"
)

// Canonical stage identifiers in dependency order. Discovery feeds liveness;
// liveness feeds everything that probes hosts; params feeds secrets (the
// JavaScript subset) and nuclei.
const (
	Subs    = "subs"
	Alive   = "alive"
	DNS     = "dns"
	Whois   = "whois"
	Ports   = "ports"
	Dirs    = "dirs"
	Params  = "params"
	Secrets = "secrets"
	Docs    = "docs"
	Nuclei  = "nuclei"
	Screens = "screens"
)

// Sentinel errors classified by the orchestrator. Both mean "skip this stage
// and keep going"; everything else a stage returns is a failure.
var (
	ErrMissingTool         = errors.New("required tool not installed")
	ErrMissingPrecondition = errors.New("missing upstream canonical file")
)

// MissingPrecondition builds an ErrMissingPrecondition for a canonical file.
func MissingPrecondition(file, hint string) error {
	return fmt.Errorf("%w: %s (%s)", ErrMissingPrecondition, file, hint)
}

// MissingTool builds an ErrMissingTool for a binary.
func MissingTool(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingTool, name)
}

// Status is the terminal state of one stage within a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome records how one stage ended. Failures carry the diagnostic; they
// are never raised to the process.
type Outcome struct {
	Stage   string        `json:"stage"`
	Status  Status        `json:"status"`
	Detail  string        `json:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Env is handed to every stage: the shared limiter, the process-launch
// primitive, the notifier, and where this run's files live. A single Env is
// built per run; nothing in it is global.
type Env struct {
	ProjectDir  string
	ProjectName string
	SnapshotDir string
	Today       time.Time
	Exec        runner.Executor
	Limiter     *ratelimit.Limiter
	Notifier    *webhook.Notifier
	Config      config.Config
}

// A Stage is one pipeline step: one external tool invocation (or in-process
// collector) plus integration of its results into the canonical files.
type Stage struct {
	Name string
	Run  func(*Env) error
}

// Intent captures what the caller asked for on the command line.
type Intent struct {
	Full     bool
	Selected []string
}

// baseline is what an empty intent resolves to: silently doing nothing would
// be worse than running discovery and liveness.
var baseline = []string{Subs, Alive}

// ResolvePlan turns an intent into the ordered stage set to execute. Order
// always follows the registry (dependency order), never the flag order.
func ResolvePlan(intent Intent, registry []Stage) ([]Stage, error) {
	if intent.Full {
		return registry, nil
	}

	want := map[string]bool{}
	for _, name := range intent.Selected {
		found := false
		for _, st := range registry {
			if st.Name == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown stage: %s", name)
		}
		want[name] = true
	}

	if len(want) == 0 {
		for _, name := range baseline {
			want[name] = true
		}
	}

	plan := []Stage{}
	for _, st := range registry {
		if want[st.Name] {
			plan = append(plan, st)
		}
	}
	return plan, nil
}

// Manifest is the persisted audit record of one run.
type Manifest struct {
	RunID      string    `json:"run_id"`
	Project    string    `json:"project"`
	Snapshot   string    `json:"snapshot"`
	Stages     []string  `json:"stages"`
	Outcomes   []Outcome `json:"outcomes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
}

// RunPlan executes the plan strictly sequentially. A stage failure is
// recorded and the next stage still runs; the run itself always completes
// and its manifest is written to the snapshot as run_meta.json.
func RunPlan(env *Env, plan []Stage) (Manifest, error) {
	m := Manifest{
		RunID:     uuid.NewString(),
		Project:   env.ProjectName,
		Snapshot:  env.SnapshotDir,
		StartedAt: time.Now().UTC(),
	}
	for _, st := range plan {
		m.Stages = append(m.Stages, st.Name)
	}

	for _, st := range plan {
		outcome := runStage(env, st)
		m.Outcomes = append(m.Outcomes, outcome)
	}

	m.FinishedAt = time.Now().UTC()
	m.Status = "completed"

	if err := writeManifest(env.SnapshotDir, m); err != nil {
		return m, err
	}
	return m, nil
}

func runStage(env *Env, st Stage) (outcome Outcome) {
	started := time.Now()
	outcome = Outcome{Stage: st.Name}

	defer func() {
		outcome.Elapsed = time.Since(started)
		if r := recover(); r != nil {
			outcome.Status = StatusFailed
			outcome.Detail = fmt.Sprintf("panic: %v", r)
			gologger.Error().Msgf("step_fail: %s (%s)", st.Name, outcome.Detail)
		}
	}()

	gologger.Info().Msgf("step_start: %s", st.Name)
	err := st.Run(env)

	switch {
	case err == nil:
		outcome.Status = StatusSucceeded
		gologger.Info().Msgf("step_ok: %s", st.Name)
	case errors.Is(err, ErrMissingTool), errors.Is(err, ErrMissingPrecondition):
		outcome.Status = StatusSkipped
		outcome.Detail = err.Error()
		gologger.Warning().Msgf("step_skip: %s (%s)", st.Name, err)
	default:
		outcome.Status = StatusFailed
		outcome.Detail = fmt.Sprintf("%T: %s", err, err)
		gologger.Warning().Msgf("step_fail: %s (%s)", st.Name, outcome.Detail)
	}
	return outcome
}

func writeManifest(snapshotDir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(snapshotDir, "run_meta.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run manifest: %w", err)
	}
	return nil
}
