package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	config "github.com/shii9/ReconTrail/internal/Config"
	history "github.com/shii9/ReconTrail/internal/History"
	project "github.com/shii9/ReconTrail/internal/Project"
	ratelimit "github.com/shii9/ReconTrail/internal/Ratelimit"
	runner "github.com/shii9/ReconTrail/internal/Runner"
	stage "github.com/shii9/ReconTrail/internal/Stage"
	tools "github.com/shii9/ReconTrail/internal/Tools"
	utils "github.com/shii9/ReconTrail/internal/Utils"
	webhook "github.com/shii9/ReconTrail/internal/Webhook"
)

const banner = `
  ____                      _____          _ _
 |  _ \ ___  ___ ___  _ __ |_   _| __ __ _(_) |
 | |_) / _ \/ __/ _ \| '_ \  | || '__/ _' | | |
 |  _ <  __/ (_| (_) | | | | | || | | (_| | | |
 |_| \_\___|\___\___/|_| |_| |_||_|  \__,_|_|_|
`

type runOptions struct {
	projectDir  string
	configPath  string
	full        bool
	verbose     bool
	globalRPS   float64
	disableRL   bool
	webhookURL  string
	httpxPorts  string
	threads     int
	subfinderRL int
	wordlist    string
	templates   string

	stageFlags map[string]*bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %s", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recontrail",
		Short:         "Incremental recon pipeline with per-project state",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{stageFlags: map[string]*bool{}}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run selected stages against a project (none selected runs subs and alive)",
		RunE: func(cmd *cobra.Command, args []string) error {
			color.Cyan(banner)
			return runRecon(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.projectDir, "project", "p", "", "project directory (holds canonical files and history)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML config file")
	cmd.Flags().BoolVar(&opts.full, "full", false, "run every stage")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().Float64Var(&opts.globalRPS, "global-rps", 0, "override global requests per second")
	cmd.Flags().BoolVar(&opts.disableRL, "disable-rate-limiting", false, "admit every request immediately")
	cmd.Flags().StringVar(&opts.webhookURL, "webhook", "", "webhook URL for delta notifications")
	cmd.Flags().StringVar(&opts.httpxPorts, "httpx-ports", "", "ports probed by the alive stage")
	cmd.Flags().IntVar(&opts.threads, "threads", 0, "worker threads for httpx and dirsearch")
	cmd.Flags().IntVar(&opts.subfinderRL, "rl", 0, "subfinder requests per second")
	cmd.Flags().StringVar(&opts.wordlist, "wordlist", "", "dirsearch wordlist")
	cmd.Flags().StringVar(&opts.templates, "templates", "", "nuclei template path")

	for _, st := range tools.Registry() {
		enabled := false
		opts.stageFlags[st.Name] = &enabled
		cmd.Flags().BoolVar(&enabled, st.Name, false, fmt.Sprintf("run the %s stage", st.Name))
	}

	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func (o *runOptions) selected() []string {
	names := []string{}
	for _, st := range tools.Registry() {
		if flag := o.stageFlags[st.Name]; flag != nil && *flag {
			names = append(names, st.Name)
		}
	}
	return names
}

// applyOverrides folds command-line flags over the loaded config. Flags win
// because they express intent for this run only.
func (o *runOptions) applyOverrides(cfg *config.Config) error {
	if o.globalRPS != 0 {
		cfg.RateLimiting.GlobalRPS = o.globalRPS
	}
	if o.disableRL {
		cfg.RateLimiting.Disabled = true
	}
	if o.webhookURL != "" {
		if !webhook.Valid(o.webhookURL) {
			return fmt.Errorf("invalid webhook URL: %s", o.webhookURL)
		}
		cfg.WebhookURL = o.webhookURL
	}
	if o.httpxPorts != "" {
		cfg.Tools.HTTPXPorts = o.httpxPorts
	}
	if o.threads > 0 {
		cfg.Tools.Threads = o.threads
	}
	if o.subfinderRL > 0 {
		cfg.Tools.SubfinderRL = o.subfinderRL
	}
	if o.wordlist != "" {
		cfg.Tools.Wordlist = o.wordlist
	}
	if o.templates != "" {
		cfg.Tools.NucleiTemplates = o.templates
	}
	return nil
}

// runRecon is the only place errors are fatal: everything up to plan
// execution must be right before any stage runs. Stage failures afterwards
// are isolated inside the orchestrator.
func runRecon(opts *runOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := opts.applyOverrides(&cfg); err != nil {
		return err
	}

	projectDir, err := project.Ensure(opts.projectDir)
	if err != nil {
		return err
	}
	today := time.Now().UTC()
	snapshotDir, err := history.Snapshot(projectDir, today)
	if err != nil {
		return err
	}

	closeLog, err := utils.InitLogger(projectDir, "recon", opts.verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	limiter := ratelimit.New()
	if err := cfg.ConfigureLimiter(limiter); err != nil {
		return err
	}

	env := &stage.Env{
		ProjectDir:  projectDir,
		ProjectName: filepath.Base(projectDir),
		SnapshotDir: snapshotDir,
		Today:       today,
		Exec:        runner.Local{},
		Limiter:     limiter,
		Notifier:    webhook.New(cfg.WebhookURL),
		Config:      cfg,
	}

	plan, err := stage.ResolvePlan(stage.Intent{Full: opts.full, Selected: opts.selected()}, tools.Registry())
	if err != nil {
		return err
	}

	manifest, err := stage.RunPlan(env, plan)
	if err != nil {
		return err
	}

	printSummary(manifest)
	return nil
}

func printSummary(m stage.Manifest) {
	fmt.Printf("\nrun %s (%s)\n", m.RunID, m.FinishedAt.Sub(m.StartedAt).Round(time.Millisecond))
	for _, o := range m.Outcomes {
		label := ""
		switch o.Status {
		case stage.StatusSucceeded:
			label = color.GreenString("ok  ")
		case stage.StatusSkipped:
			label = color.YellowString("skip")
		case stage.StatusFailed:
			label = color.RedString("fail")
		}
		line := fmt.Sprintf("  %s %-8s %s", label, o.Stage, o.Elapsed.Round(time.Millisecond))
		if o.Detail != "" {
			line += "  " + o.Detail
		}
		fmt.Println(line)
	}
}
