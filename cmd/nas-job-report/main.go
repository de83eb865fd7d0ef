package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"k8s.io/klog/v2"

	"github.com/runningman84/nas-job-report/pkg/cdm"
	"github.com/runningman84/nas-job-report/pkg/config"
	"github.com/runningman84/nas-job-report/pkg/operator"
)

// Version can be set at build time using -ldflags
// Example: go build -ldflags="-X main.Version=1.0.0"
var Version = "dev"

// options holds the command line flags
type options struct {
	cfgFile     string
	debug       bool
	verbose     bool
	output      string
	creds       string
	token       string
	format      string
	logFormat   string
	timeout     time.Duration
	concurrency int
	insecure    bool
}

func newRootCmd() *cobra.Command {
	return newCommand(&options{})
}

func newCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nas-job-report [flags] <cluster>",
		Short: "Report the latest successful NAS fileset backups of a CDM cluster",
		Long: `nas-job-report queries a Rubrik CDM cluster for its NAS shares, the protected
filesets of each share and their recent backup events, and writes one report row
per fileset describing its most recent successful backup.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.cfgFile, "config", "", "config file (default is /etc/nas-job-report/config.yaml)")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "D", false, "debug mode, log every API request")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose mode, log progress")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default is stdout)")
	cmd.Flags().StringVarP(&opts.creds, "creds", "c", "", "cluster credentials as user:password")
	cmd.Flags().StringVarP(&opts.token, "token", "t", "", "cluster API token")
	cmd.Flags().StringVar(&opts.format, "format", config.FormatLegacy, "report format: legacy, csv or table")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", config.LogFormatText, "log format: text or json")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "timeout of each API request")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 1, "number of event series fetched in parallel")
	cmd.Flags().BoolVar(&opts.insecure, "insecure", true, "skip TLS certificate verification")

	return cmd
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd.Flags(), opts, cfg, args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, flush, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	log.V(1).Info("Starting nas-job-report", "version", Version, "cluster", cfg.Host)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := cdm.NewManager(cdm.NewRESTFetcher(cfg, Version), log.WithName("cdm"))
	op := operator.NewOperator(cfg, manager, log)

	if cfg.Output == "" {
		return op.Run(ctx, cmd.OutOrStdout())
	}

	var buf bytes.Buffer
	if err := op.Run(ctx, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(cfg.Output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", cfg.Output, err)
	}
	return nil
}

// applyFlags overrides file and environment settings with explicitly given flags
func applyFlags(flags *pflag.FlagSet, opts *options, cfg *config.Config, args []string) error {
	if len(args) == 1 {
		cfg.Host = args[0]
	}
	if flags.Changed("creds") {
		if err := cfg.SetCredentials(opts.creds); err != nil {
			return err
		}
	}
	if flags.Changed("token") {
		cfg.Token = opts.token
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("format") {
		cfg.Format = opts.format
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("insecure") {
		cfg.Insecure = opts.insecure
	}

	switch {
	case opts.debug:
		cfg.LogLevel = config.LogLevelDebug
	case opts.verbose:
		cfg.LogLevel = config.LogLevelVerbose
	}
	return nil
}

// newLogger builds the logger for the configured level and format.
// Logs always go to stderr so they never mix with a report on stdout.
func newLogger(cfg *config.Config) (logr.Logger, func(), error) {
	if cfg.IsSilent() {
		return logr.Discard(), func() {}, nil
	}

	if cfg.LogFormat == config.LogFormatJSON {
		var zapLog *zap.Logger
		var err error
		if cfg.IsDebug() {
			zapLog, err = zap.NewDevelopment()
		} else {
			zapLog, err = zap.NewProduction()
		}
		if err != nil {
			return logr.Logger{}, nil, fmt.Errorf("failed to initialize JSON logger: %w", err)
		}

		log := zapr.NewLogger(zapLog)
		// Set klog to use zap backend for JSON output
		klog.SetLogger(log)
		return log, func() { _ = zapLog.Sync() }, nil
	}

	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	klog.InitFlags(fs)
	// Set klog verbosity based on log level
	verbosity := "0"
	if cfg.IsDebug() {
		verbosity = "1"
	}
	if err := fs.Set("v", verbosity); err != nil {
		return logr.Logger{}, nil, fmt.Errorf("failed to set log verbosity: %w", err)
	}
	return klog.NewKlogr(), klog.Flush, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
