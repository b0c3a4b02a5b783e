package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"aicommit/cli/internal/config"
	"aicommit/cli/internal/erruser"
	"aicommit/cli/internal/git"
	"aicommit/cli/internal/groq"
	"aicommit/cli/internal/prompt"
	"aicommit/cli/internal/render"
	"aicommit/cli/internal/run"
	"aicommit/cli/internal/settings"
	"aicommit/cli/internal/trace"
	"aicommit/cli/internal/version"
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

// Output writers. Tests replace them to capture output.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// newPrompter returns the interactive prompter and its cleanup. Tests replace it.
var newPrompter = func() (settings.Prompter, func() error) {
	t := prompt.NewTerminal(stdout)
	return t, t.Close
}

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	rootCmd := &cobra.Command{
		Use:     "ai-commit",
		Short:   "Write conventional commit messages from your staged changes with Groq",
		Version: version.String(),
	}
	rootCmd.PersistentFlags().StringP("model", "m", "", "Model to use for this run (overrides the configured model)")
	rootCmd.PersistentFlags().Bool("trace", false, "Print request and timing details to stderr")
	rootCmd.PersistentFlags().Duration("timeout", 0, "HTTP timeout for provider requests, e.g. 90s (0 disables)")
	rootCmd.PersistentFlags().String("base-url", "", "Provider base URL")
	rootCmd.AddCommand(newCommitCmd())
	rootCmd.AddCommand(newConfigureCmd())
	rootCmd.AddCommand(newModelsCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exitErr errExit
		if errors.As(err, &exitErr) {
			return int(exitErr)
		}
		fmt.Fprintln(stderr, err)
		if u := errors.Unwrap(err); u != nil {
			fmt.Fprintf(stderr, "Details: %v\n", u)
		}
		return 1
	}
	return 0
}

// env bundles what every command resolves before doing work.
type env struct {
	cfg      *config.Config
	repoRoot string
	tracer   *trace.Tracer
}

// loadEnv resolves the repository (optional unless requireRepo) and the
// effective configuration.
func loadEnv(cmd *cobra.Command, requireRepo bool) (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, erruser.New(erruser.Configuration, "Could not determine current directory.", err)
	}
	repoRoot, err := git.RepoRoot(cwd)
	if err != nil {
		if requireRepo {
			return nil, err
		}
		repoRoot = ""
	}
	cfg, err := config.Load(cmd.Context(), config.LoadOptions{RepoRoot: repoRoot, Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, repoRoot: repoRoot, tracer: trace.New(nil)}
	if on, _ := cmd.Flags().GetBool("trace"); on {
		e.tracer = trace.New(stderr)
	}
	e.tracer.Section("Configuration")
	e.tracer.Field("repo_root", repoRoot)
	e.tracer.Field("base_url", cfg.BaseURL)
	e.tracer.Field("timeout", cfg.Timeout)
	return e, nil
}

func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	o := &config.Overrides{}
	flags := cmd.Flags()
	if f := flags.Lookup("model"); f != nil && f.Changed {
		v, _ := flags.GetString("model")
		o.Model = &v
	}
	if f := flags.Lookup("base-url"); f != nil && f.Changed {
		v, _ := flags.GetString("base-url")
		o.BaseURL = &v
	}
	if f := flags.Lookup("timeout"); f != nil && f.Changed {
		v, _ := flags.GetDuration("timeout")
		o.Timeout = &v
	}
	return o
}

func (e *env) settingsPath() (string, error) {
	if e.cfg.SettingsPath != "" {
		return e.cfg.SettingsPath, nil
	}
	return settings.DefaultPath()
}

func (e *env) newClient(apiKey string) *groq.Client {
	return groq.NewClient(apiKey,
		groq.WithBaseURL(e.cfg.BaseURL),
		groq.WithTimeout(e.cfg.Timeout),
		groq.WithTracer(e.tracer),
	)
}

// store returns the settings store and a cleanup for the terminal.
func (e *env) store() (*settings.Store, func(), error) {
	path, err := e.settingsPath()
	if err != nil {
		return nil, nil, err
	}
	p, closePrompter := newPrompter()
	store := settings.NewStore(path, p, func(apiKey string) settings.ModelLister {
		return classifiedLister{e.newClient(apiKey)}
	})
	return store, func() { _ = closePrompter() }, nil
}

// resolve loads settings, configuring them interactively when absent, and
// applies the model override.
func (e *env) resolve(cmd *cobra.Command) (settings.Settings, error) {
	store, done, err := e.store()
	if err != nil {
		return settings.Settings{}, err
	}
	defer done()
	s, err := store.Load(cmd.Context(), settings.Settings{APIKey: e.cfg.APIKey, Model: e.cfg.Model})
	if err != nil {
		return settings.Settings{}, err
	}
	if e.cfg.Model != "" {
		s.Model = e.cfg.Model
	}
	return s, nil
}

// classifiedLister turns chat client failures into user-facing errors.
type classifiedLister struct{ c *groq.Client }

func (l classifiedLister) Models(ctx context.Context) ([]groq.Model, error) {
	models, err := l.c.Models(ctx)
	return models, run.Classify(err)
}

func newCommitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Generate a commit message for the staged changes and commit",
		Args:  cobra.NoArgs,
		RunE:  runCommit,
	}
	cmd.Flags().BoolP("all", "a", false, "Include unstaged changes to tracked files (git commit -a)")
	cmd.Flags().BoolP("dry-run", "d", false, "Print the message without committing")
	cmd.Flags().StringP("subject", "s", "", "Subject hint for the message")
	cmd.Flags().StringP("improve", "i", "", "Improve this message instead of generating a new one")
	cmd.Flags().Bool("pretty", false, "Render the dry-run message as formatted markdown")
	cmd.Flags().Bool("note", false, "Record the model and options as a git note on the new commit ("+git.NotesRef+")")
	return cmd
}

func runCommit(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd, true)
	if err != nil {
		return err
	}
	s, err := e.resolve(cmd)
	if err != nil {
		return err
	}
	all, _ := cmd.Flags().GetBool("all")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	subject, _ := cmd.Flags().GetString("subject")
	improve, _ := cmd.Flags().GetString("improve")
	pretty, _ := cmd.Flags().GetBool("pretty")
	note, _ := cmd.Flags().GetBool("note")

	client := e.newClient(s.APIKey)
	repo := &git.Repo{Root: e.repoRoot, Stdout: stdout, Stderr: stderr}
	deps := run.Deps{
		Diff:   repo,
		Chat:   client,
		Models: client,
		Out:    stdout,
		Warn:   stderr,
		Trace:  e.tracer,
		Notes:  repo,
	}
	if pretty {
		deps.Render = func(m string) (string, error) {
			return render.Markdown(render.CommitMarkdown(m), render.StyleAuto, 0)
		}
	}
	_, err = run.Commit(cmd.Context(), run.Options{
		All:           all,
		DryRun:        dryRun,
		Subject:       subject,
		Improve:       improve,
		Model:         s.Model,
		WarnThreshold: e.cfg.WarnThreshold,
		Note:          note,
	}, deps)
	return err
}

func newConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Set the API key and model interactively",
		Args:  cobra.NoArgs,
		RunE:  runConfigure,
	}
}

func runConfigure(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd, false)
	if err != nil {
		return err
	}
	store, done, err := e.store()
	if err != nil {
		return err
	}
	defer done()
	defaults := settings.Settings{APIKey: e.cfg.APIKey, Model: e.cfg.Model}
	if cur, err := store.Read(); err == nil {
		// Stored key wins over the environment; an explicit model wins over the stored one.
		defaults = settings.Settings{Model: e.cfg.Model}.Merge(cur).Merge(defaults)
	}
	s, err := store.Configure(cmd.Context(), defaults)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved model %s to %s\n", s.Model, store.Path())
	return nil
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models available to your API key",
		Args:  cobra.NoArgs,
		RunE:  runModels,
	}
}

func runModels(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd, false)
	if err != nil {
		return err
	}
	s, err := e.resolve(cmd)
	if err != nil {
		return err
	}
	models, err := e.newClient(s.APIKey).Models(cmd.Context())
	if err != nil {
		return run.Classify(err)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	for _, m := range models {
		mark := " "
		if m.ID == s.Model {
			mark = "*"
		}
		line := mark + " " + m.ID
		if m.ContextWindow > 0 {
			line += fmt.Sprintf("  (context %d)", m.ContextWindow)
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Verify the repository, settings, provider, and model",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd, false)
	if err != nil {
		return err
	}
	if e.repoRoot == "" {
		fmt.Fprintln(stderr, "Git: not inside a repository.")
		return errExit(1)
	}
	fmt.Fprintf(stdout, "Git OK: %s\n", e.repoRoot)

	path, err := e.settingsPath()
	if err != nil {
		return err
	}
	s, err := settings.NewStore(path, nil, nil).Read()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(stderr, err)
		if u := errors.Unwrap(err); u != nil {
			fmt.Fprintf(stderr, "Details: %v\n", u)
		}
		return errExit(1)
	}
	s = s.Merge(settings.Settings{APIKey: e.cfg.APIKey})
	if e.cfg.Model != "" {
		s.Model = e.cfg.Model
	}
	if s.APIKey == "" || s.Model == "" {
		fmt.Fprintf(stderr, "Settings incomplete in %s; run ai-commit configure.\n", path)
		return errExit(1)
	}
	fmt.Fprintf(stdout, "Settings OK: %s\n", path)

	start := time.Now()
	model, err := settings.FindModel(cmd.Context(), e.newClient(s.APIKey), s.Model)
	if err != nil {
		err = run.Classify(err)
		fmt.Fprintln(stderr, err)
		if u := errors.Unwrap(err); u != nil {
			fmt.Fprintf(stderr, "Details: %v\n", u)
		}
		if erruser.Is(err, erruser.Network) || erruser.Is(err, erruser.Timeout) {
			return errExit(2)
		}
		return errExit(1)
	}
	fmt.Fprintf(stdout, "Provider OK: %s (%s)\n", e.cfg.BaseURL, time.Since(start).Round(time.Millisecond))
	if model == nil {
		fmt.Fprintf(stderr, "Model %q is not available; run ai-commit models to list the available models.\n", s.Model)
		return errExit(1)
	}
	fmt.Fprintf(stdout, "Model OK: %s\n", model.ID)
	return nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the settings file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, false)
			if err != nil {
				return err
			}
			path, err := e.settingsPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := settings.Schema()
			if err != nil {
				return erruser.New(erruser.Unknown, "Could not build the settings schema.", err)
			}
			fmt.Fprintln(stdout, string(data))
			return nil
		},
	})
	return cmd
}
