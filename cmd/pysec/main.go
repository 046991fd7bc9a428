// (c) Copyright 2016 Hewlett Packard Enterprise Development LP
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/securego/pysec"
	"github.com/securego/pysec/internal/logging"
	"github.com/securego/pysec/report"
	"github.com/securego/pysec/rules"
	"github.com/securego/pysec/taint"
)

const (
	usageText = `pysec - Python web handler taint checker

pysec tracks request data through Python request handlers and reports
handlers that return it unescaped.

VERSION: %s
GIT TAG: %s
BUILD DATE: %s`

	exampleText = `  # Check a single file
  $ pysec app.py

  # Check every file under the current directory and save results in
  # json format.
  $ pysec --fmt=json --out=results.json ./...

  # Run a specific set of rules (by default all rules will be run):
  $ pysec --include=PY101 ./...

  # Run all rules except the provided
  $ pysec --exclude=PY103 ./...`

	envPrefix        = "PYSEC"
	defaultFramework = "bottle"
)

// errIssuesFound makes the process exit 1 without printing an error.
var errIssuesFound = errors.New("issues found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errIssuesFound) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

// options holds the resolved command line and environment settings.
type options struct {
	format       string
	output       string
	config       string
	framework    string
	catalogs     []string
	include      string
	exclude      string
	excludeDirs  []string
	excludeRules string
	severity     string
	confidence   string
	ignoreNoSec  bool
	showIgnored  bool
	quiet        bool
	sort         bool
	logFile      string
	logLevel     string
	concurrency  int
	noColor      bool
}

func loadOptions(v *viper.Viper) options {
	return options{
		format:       v.GetString("fmt"),
		output:       v.GetString("out"),
		config:       v.GetString("conf"),
		framework:    v.GetString("framework"),
		catalogs:     v.GetStringSlice("catalog"),
		include:      v.GetString("include"),
		exclude:      v.GetString("exclude"),
		excludeDirs:  v.GetStringSlice("exclude-dir"),
		excludeRules: v.GetString("exclude-rules"),
		severity:     v.GetString("severity"),
		confidence:   v.GetString("confidence"),
		ignoreNoSec:  v.GetBool("nosec"),
		showIgnored:  v.GetBool("show-ignored"),
		quiet:        v.GetBool("quiet"),
		sort:         v.GetBool("sort"),
		logFile:      v.GetString("log"),
		logLevel:     v.GetString("log-level"),
		concurrency:  v.GetInt("concurrency"),
		noColor:      v.GetBool("no-color"),
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	prepareVersionInfo()
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "pysec [flags] FILE [FILE...] | DIR/...",
		Short:         "Python web handler taint checker",
		Long:          fmt.Sprintf(usageText, Version, GitTag, BuildDate),
		Example:       exampleText,
		Version:       Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			v.SetEnvPrefix(envPrefix)
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			return v.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), loadOptions(v), args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := cmd.Flags()
	flags.String("fmt", "text", "Set output format. Valid options are: "+strings.Join(report.Formats, ", "))
	flags.StringP("out", "o", "", "Set output file for results")
	flags.StringP("conf", "c", "", "Path to optional config file")
	flags.String("framework", "", "Built-in rule catalog (default bottle). Valid options are: "+strings.Join(rules.Frameworks(), ", "))
	flags.StringSlice("catalog", nil, "Additional YAML rule catalogs merged after the built-in one")
	flags.String("include", "", "Comma separated list of rules IDs to include. (see rule list)")
	flags.String("exclude", "", "Comma separated list of rules IDs to exclude. (see rule list)")
	flags.StringSlice("exclude-dir", []string{"venv", ".tox", "node_modules"}, "Exclude folder from scan (can be specified multiple times)")
	flags.String("exclude-rules", "", `Path based rule exclusions, e.g. "tests/.*:PY101,PY102;legacy/.*:*"`)
	flags.String("severity", "low", "Filter out the issues with a lower severity than the given value. Valid options are: low, medium, high")
	flags.String("confidence", "low", "Filter out the issues with a lower confidence than the given value. Valid options are: low, medium, high")
	flags.Bool("nosec", false, "Ignores #nosec comments when set")
	flags.Bool("show-ignored", false, "Count #nosec issues as findings")
	flags.BoolP("quiet", "q", false, "Only show output when issues are found")
	flags.Bool("sort", true, "Sort issues by severity")
	flags.String("log", "", "Log messages to file rather than stderr")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.Int("concurrency", 0, "Number of files analyzed in parallel (default GOMAXPROCS)")
	flags.Bool("no-color", false, "Disable colored output")

	cmd.AddCommand(newRulesCmd(stdout), newCatalogCmd(stdout))
	return cmd
}

func newRulesCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rules reported by pysec",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range pysec.Rules {
				w := pysec.GetCweByRule(r.ID)
				if _, err := fmt.Fprintf(stdout, "%s: %s (%s, %s)\n", r.ID, r.What, r.Category, w.SprintID()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newCatalogCmd(stdout io.Writer) *cobra.Command {
	var framework string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print a built-in rule catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rules.Builtin(framework)
			if err != nil {
				return err
			}
			_, err = c.WriteTo(stdout)
			return err
		},
	}
	cmd.Flags().StringVar(&framework, "framework", defaultFramework, "Built-in rule catalog")
	return cmd
}

func loadConfig(opts options) (pysec.Config, error) {
	config := pysec.NewConfig()
	if opts.config != "" {
		file, err := os.Open(opts.config)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		if _, err := config.ReadFrom(file); err != nil {
			return nil, fmt.Errorf("reading %s: %w", opts.config, err)
		}
	}
	if opts.ignoreNoSec {
		config.SetGlobal(pysec.Nosec, "true")
	}
	if opts.showIgnored {
		config.SetGlobal(pysec.ShowIgnored, "true")
	}
	if opts.concurrency > 0 {
		config.SetGlobal(pysec.Concurrency, fmt.Sprint(opts.concurrency))
	}
	return config, nil
}

// loadCatalog merges the built-in framework catalog with extra YAML
// catalogs. The framework flag wins over the config file.
func loadCatalog(config pysec.Config, opts options) (taint.Catalog, error) {
	framework := opts.framework
	if framework == "" {
		framework, _ = config.GetGlobal(pysec.Framework)
	}
	if framework == "" {
		framework = defaultFramework
	}
	base, err := rules.Builtin(framework)
	if err != nil {
		return nil, err
	}
	paths := opts.catalogs
	if extra, err := config.GetGlobal(pysec.Catalog); err == nil && extra != "" {
		paths = append(paths, extra)
	}
	catalogs := []*rules.Catalog{base}
	for _, path := range paths {
		c, err := rules.LoadFile(path)
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, c)
	}
	if len(catalogs) == 1 {
		return base, nil
	}
	return rules.Merge(catalogs...)
}

func loadPathFilter(config pysec.Config, opts options) (*pysec.PathExclusionFilter, error) {
	configRules, err := config.GetExcludeRules()
	if err != nil {
		return nil, err
	}
	cliRules, err := pysec.ParseCLIExcludeRules(opts.excludeRules)
	if err != nil {
		return nil, err
	}
	return pysec.NewPathExclusionFilter(pysec.MergeExcludeRules(configRules, cliRules))
}

// filterIssues keeps the issues at or above the severity and confidence
// thresholds and returns them with the number of reportable findings.
func filterIssues(issues []*pysec.Issue, severity, confidence pysec.Score, showIgnored bool) ([]*pysec.Issue, int) {
	result := []*pysec.Issue{}
	found := 0
	for _, issue := range issues {
		if issue.Severity < severity || issue.Confidence < confidence {
			continue
		}
		result = append(result, issue)
		if !issue.NoSec || showIgnored {
			found++
		}
	}
	return result, found
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func newLogger(opts options, stderr io.Writer) (*zap.Logger, error) {
	cfg := logging.DefaultConfig()
	cfg.Color = !opts.noColor
	cfg.File = opts.logFile
	if opts.logLevel != "" {
		cfg.Level = opts.logLevel
	}
	console := zapcore.AddSync(stderr)
	if opts.quiet || opts.logFile != "" {
		console = zapcore.AddSync(io.Discard)
	}
	return logging.New(cfg, console)
}

func run(ctx context.Context, opts options, args []string, stdout, stderr io.Writer) error {
	logger, err := newLogger(opts, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	severity, err := pysec.ParseScore(opts.severity)
	if err != nil {
		return fmt.Errorf("severity: %w", err)
	}
	confidence, err := pysec.ParseScore(opts.confidence)
	if err != nil {
		return fmt.Errorf("confidence: %w", err)
	}

	config, err := loadConfig(opts)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(config, opts)
	if err != nil {
		return err
	}
	filter, err := loadPathFilter(config, opts)
	if err != nil {
		return err
	}

	analyzer := pysec.NewAnalyzer(config, catalog, logger,
		pysec.WithRuleSelection(splitIDs(opts.include), splitIDs(opts.exclude)),
		pysec.WithPathFilter(filter))

	excluded := pysec.ExcludedDirsRegExp(opts.excludeDirs)
	var files, rootPaths []string
	for _, arg := range args {
		found, err := pysec.SourceFiles(arg, excluded)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			logger.Warn("no Python files found", zap.String("path", arg))
		}
		files = append(files, found...)
		if root, err := pysec.RootPath(arg); err == nil {
			rootPaths = append(rootPaths, root)
		}
	}
	logger.Info("starting analysis", zap.Int("files", len(files)), zap.String("version", Version))

	if err := analyzer.Process(ctx, files...); err != nil {
		return err
	}

	issues, metrics, errs := analyzer.Report()
	showIgnored, _ := config.IsGlobalEnabled(pysec.ShowIgnored)
	issues, metrics.NumFound = filterIssues(issues, severity, confidence, showIgnored)
	issuesFound := metrics.NumFound > 0
	if !issuesFound && opts.quiet {
		return nil
	}
	if opts.sort {
		sortIssues(issues)
	}

	data := pysec.NewReportInfo(issues, metrics, errs).
		WithHandlers(analyzer.Handlers()).
		WithVersion(Version)
	if err := saveOutput(opts, rootPaths, data, stdout); err != nil {
		return err
	}
	if issuesFound {
		return errIssuesFound
	}
	return nil
}

func saveOutput(opts options, rootPaths []string, data *pysec.ReportInfo, stdout io.Writer) error {
	if opts.output == "" {
		return report.CreateReport(stdout, opts.format, !opts.noColor, rootPaths, data)
	}
	outfile, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	defer outfile.Close()
	return report.CreateReport(outfile, opts.format, false, rootPaths, data)
}
