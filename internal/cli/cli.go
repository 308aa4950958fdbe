package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"quiz-canon/internal/canon"
	"quiz-canon/internal/config"
	"quiz-canon/internal/corpus"
	"quiz-canon/internal/lint"
	"quiz-canon/internal/placeholder"
	"quiz-canon/internal/report"
	"quiz-canon/internal/scan"
	"quiz-canon/internal/store"
)

// ErrIssuesFound is returned by audit and check when --fail-on-issues is set and at
// least one issue was reported.
var ErrIssuesFound = errors.New("issues found")

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quiz-canon",
		Short: "Consistency checker and identifier canonicalizer for quiz corpora",
		Long: `Audits quiz records whose scenarios embed pseudo-code: checks that the blank
marker named in a question sits in code, and rewrites localized identifier
spellings (一時, 結果, カレント, 真, ...) into one canonical form.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("rules", "", "YAML rule file extending or replacing the built-in rules (default $RULES_FILE)")
	rootCmd.PersistentFlags().Int("workers", 0, "Number of concurrent workers (default $WORKER_COUNT)")

	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(rewriteCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(runCmd())
	return rootCmd
}

// options carries flag values that override the environment configuration.
type options struct {
	rules        string
	workers      int
	window       int
	label        string
	format       string
	output       string
	store        bool
	failOnIssues bool
	dryRun       bool
}

func readOptions(cmd *cobra.Command) options {
	var o options
	flags := cmd.Flags()
	o.rules, _ = flags.GetString("rules")
	o.workers, _ = flags.GetInt("workers")
	o.window, _ = flags.GetInt("window")
	o.label, _ = flags.GetString("label")
	o.format, _ = flags.GetString("format")
	o.output, _ = flags.GetString("output")
	o.store, _ = flags.GetBool("store")
	o.failOnIssues, _ = flags.GetBool("fail-on-issues")
	o.dryRun, _ = flags.GetBool("dry-run")
	return o
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <path>",
		Short: "Report records whose blank marker is missing or only appears in prose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runAudit(ctx, cmd.OutOrStdout(), args[0], readOptions(cmd))
		},
	}

	cmd.Flags().Int("window", 0, "Runes inspected on each side of a marker (default $CONTEXT_WINDOW)")
	cmd.Flags().String("label", "", "Blank label to look for (default $BLANK_LABEL)")
	cmd.Flags().String("format", "", "Report format: json or tsv (default $REPORT_FORMAT)")
	cmd.Flags().String("output", "", "Write the report to a file instead of stdout")
	cmd.Flags().Bool("store", false, "Persist the audit run to PostgreSQL ($DATABASE_URL)")
	cmd.Flags().Bool("fail-on-issues", false, "Exit non-zero when any record is not consistent")

	return cmd
}

func rewriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewrite <path>",
		Short: "Canonicalize localized identifiers and literals in every record",
		Long: `Rewrites every corpus file under <path> in full. All files are computed and
staged before the first one is replaced; if any replacement fails, the files already
replaced are restored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runRewrite(ctx, cmd.OutOrStdout(), args[0], readOptions(cmd))
		},
	}

	cmd.Flags().Bool("dry-run", false, "Report the changes without writing any file")

	return cmd
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Run integrity checks (missing fields, duplicates, answers, identifiers)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runCheck(ctx, cmd.OutOrStdout(), args[0], readOptions(cmd))
		},
	}

	cmd.Flags().String("format", "", "Report format: json or tsv (default $REPORT_FORMAT)")
	cmd.Flags().String("output", "", "Write the report to a file instead of stdout")
	cmd.Flags().Bool("fail-on-issues", false, "Exit non-zero when any issue is found")

	return cmd
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective rewrite rule table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd.OutOrStdout(), readOptions(cmd))
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <run-id>",
		Short: "Show a stored audit run and its findings per verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runShow(ctx, cmd.OutOrStdout(), args[0], readOptions(cmd))
		},
	}
}

// loadConfig reads the environment configuration, applies flag overrides and sets the
// log level.
func loadConfig(o options) *config.Config {
	cfg := config.Load()
	if o.rules != "" {
		cfg.RulesFile = o.rules
	}
	if o.workers > 0 {
		cfg.WorkerCount = o.workers
	}
	if o.window > 0 {
		cfg.ContextWindow = o.window
	}
	if o.label != "" {
		cfg.BlankLabel = o.label
	}
	if o.format != "" {
		cfg.ReportFormat = o.format
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, keeping default")
	}
	return cfg
}

func newScanner(cfg *config.Config) (*scan.Scanner, error) {
	rules, err := canon.ResolveRules(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("resolve rules: %w", err)
	}
	c, err := canon.New(rules)
	if err != nil {
		return nil, fmt.Errorf("build canonicalizer: %w", err)
	}
	locator := placeholder.NewLocator(placeholder.Options{
		Label:  cfg.BlankLabel,
		Window: cfg.ContextWindow,
	})
	return scan.New(locator, c, cfg.WorkerCount), nil
}

func loadCorpus(ctx context.Context, cfg *config.Config, path string) ([]store.Collection, error) {
	paths, err := store.NewWalker().Walk(path)
	if err != nil {
		return nil, err
	}
	return store.NewFileStore(cfg.WorkerCount).Load(ctx, paths)
}

// openOutput returns stdout (w) or the --output file.
func openOutput(w io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}

// runAudit handles the `audit` command.
func runAudit(ctx context.Context, w io.Writer, path string, o options) error {
	cfg := loadConfig(o)

	scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}
	collections, err := loadCorpus(ctx, cfg, path)
	if err != nil {
		return err
	}

	audits := make([]report.FileAudit, 0, len(collections))
	issues := 0
	for _, col := range collections {
		r, err := scanner.Audit(ctx, col.Records)
		if err != nil {
			return err
		}
		issues += r.Issues()
		audits = append(audits, report.FileAudit{Path: col.Path, Report: r})
	}

	out, closeOut, err := openOutput(w, o.output)
	if err != nil {
		return err
	}
	if err := report.WriteAudit(out, cfg.ReportFormat, audits); err != nil {
		_ = closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	if o.store {
		if err := storeAudit(ctx, cfg, path, audits); err != nil {
			return err
		}
	}

	log.Info().
		Int("files", len(collections)).
		Int("issues", issues).
		Msg("Audit finished")

	if o.failOnIssues && issues > 0 {
		return fmt.Errorf("%w: %d records", ErrIssuesFound, issues)
	}
	return nil
}

func storeAudit(ctx context.Context, cfg *config.Config, source string, audits []report.FileAudit) error {
	if cfg.DatabaseURL == "" {
		return errors.New("--store requires DATABASE_URL")
	}
	pg, err := report.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()
	log.Info().Msg("Connected to PostgreSQL")

	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}
	if _, err := pg.SaveAudit(ctx, source, audits); err != nil {
		return err
	}
	return nil
}

// storedRun is the `run` command output.
type storedRun struct {
	*report.RunSummary
	Findings map[string]int `json:"findings"`
}

// runShow handles the `run` command.
func runShow(ctx context.Context, w io.Writer, id string, o options) error {
	runID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", id, err)
	}
	cfg := loadConfig(o)
	if cfg.DatabaseURL == "" {
		return errors.New("run requires DATABASE_URL")
	}

	pg, err := report.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	summary, err := pg.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	out := storedRun{RunSummary: summary, Findings: make(map[string]int)}
	for _, v := range []placeholder.Verdict{placeholder.Consistent, placeholder.MissingInScenario, placeholder.OnlyInProseText} {
		n, err := pg.CountFindings(ctx, runID, v.String())
		if err != nil {
			return err
		}
		out.Findings[v.String()] = n
	}
	return report.WriteJSON(w, out)
}

// fileChanges summarizes a rewrite of one corpus file.
type fileChanges struct {
	Path     string         `json:"path"`
	Changes  []scan.Change  `json:"changes"`
	Warnings []scan.Warning `json:"warnings,omitempty"`
}

// runRewrite handles the `rewrite` command.
func runRewrite(ctx context.Context, w io.Writer, path string, o options) error {
	cfg := loadConfig(o)

	scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}
	collections, err := loadCorpus(ctx, cfg, path)
	if err != nil {
		return err
	}

	var (
		files   []store.File
		summary []fileChanges
	)
	for _, col := range collections {
		result, err := scanner.Rewrite(ctx, col.Records)
		if err != nil {
			return err
		}
		if len(result.Changed) == 0 && len(result.Warnings) == 0 {
			continue
		}
		summary = append(summary, fileChanges{Path: col.Path, Changes: result.Changes, Warnings: result.Warnings})
		if len(result.Changed) == 0 {
			continue
		}
		data, err := corpus.EncodeCollection(result.Records)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", store.ErrStorage, col.Path, err)
		}
		files = append(files, store.File{Path: col.Path, Data: data})
	}

	if err := report.WriteJSON(w, summary); err != nil {
		return err
	}

	if o.dryRun {
		log.Info().Int("files", len(files)).Msg("Dry run, no files written")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rewrite aborted before writing: %w", err)
	}
	if len(files) == 0 {
		log.Info().Msg("Corpus already canonical")
		return nil
	}
	return store.NewFileStore(cfg.WorkerCount).Commit(files)
}

// runCheck handles the `check` command.
func runCheck(ctx context.Context, w io.Writer, path string, o options) error {
	cfg := loadConfig(o)

	collections, err := loadCorpus(ctx, cfg, path)
	if err != nil {
		return err
	}

	results := make([]report.FileIssues, 0, len(collections))
	total := 0
	for _, col := range collections {
		issues := lint.Check(col.Records)
		total += len(issues)
		results = append(results, report.FileIssues{Path: col.Path, Issues: issues})
	}

	out, closeOut, err := openOutput(w, o.output)
	if err != nil {
		return err
	}
	switch cfg.ReportFormat {
	case report.FormatTSV:
		err = report.WriteIssuesTSV(out, results)
	case report.FormatJSON:
		err = report.WriteJSON(out, results)
	default:
		err = fmt.Errorf("unknown report format %q", cfg.ReportFormat)
	}
	if err != nil {
		_ = closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	log.Info().Int("files", len(collections)).Int("issues", total).Msg("Check finished")

	if o.failOnIssues && total > 0 {
		return fmt.Errorf("%w: %d issues", ErrIssuesFound, total)
	}
	return nil
}

// runRules handles the `rules` command. The output is itself a valid rule file.
func runRules(w io.Writer, o options) error {
	cfg := loadConfig(o)

	rules, err := canon.ResolveRules(cfg.RulesFile)
	if err != nil {
		return err
	}
	if _, err := canon.New(rules); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(canon.RuleFile{Mode: canon.ModeReplace, Rules: rules}); err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return enc.Close()
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
