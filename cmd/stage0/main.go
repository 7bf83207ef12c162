package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
	stage0log "github.com/gxo-labs/stage0/pkg/stage0/v1/log"

	"github.com/gxo-labs/stage0/internal/checksum"
	"github.com/gxo-labs/stage0/internal/config"
	"github.com/gxo-labs/stage0/internal/logger"
	"github.com/gxo-labs/stage0/internal/metrics"
	"github.com/gxo-labs/stage0/internal/stamp"
	"github.com/gxo-labs/stage0/internal/tracing"
)

const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitUsageError  = 2
	ExitStale       = 3
	DefaultLogLevel = "info"
	DefaultLogFmt   = "text"
	DefaultConfig   = "config.toml"
	ShutdownTimeout = 5 * time.Second
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// errUsage marks errors already reported to the user with usage text.
var errUsage = errors.New("usage error")

// app carries the collaborators shared by every subcommand.
type app struct {
	log     stage0log.Logger
	metrics *metrics.PrometheusRegistryProvider
	tracer  oteltrace.Tracer
	stdout  io.Writer
	stderr  io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) (int, error)
}

var commands = []command{
	{"configure", "generate config.toml from defaults and overrides", runConfigure},
	{"get", "print the effective value of a configuration key", runGet},
	{"verify", "check a file against an expected SHA-256 digest", runVerify},
	{"sha256", "print the SHA-256 digest of files", runSHA256},
	{"stamp", "check or record a component stamp (check|record)", runStamp},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := pflag.NewFlagSet("stage0", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(stderr)
	logLevel := global.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	logFormat := global.String("log-format", DefaultLogFmt, "Log format (text, json)")
	metricsFile := global.String("metrics-file", "", "Write Prometheus metrics in text format to this file on exit")
	versionFlag := global.Bool("version", false, "Print version information and exit")
	global.Usage = func() { printUsage(stderr, global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitSuccess
		}
		return ExitUsageError
	}
	if *versionFlag {
		printVersion(stdout)
		return ExitSuccess
	}
	if *logFormat != "text" && *logFormat != "json" {
		fmt.Fprintln(stderr, "Error: --log-format must be 'text' or 'json'")
		return ExitUsageError
	}
	if global.NArg() == 0 {
		global.Usage()
		return ExitUsageError
	}

	name, rest := global.Arg(0), global.Args()[1:]
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", name)
		global.Usage()
		return ExitUsageError
	}

	log := logger.NewLogger(*logLevel, *logFormat, stderr).With("stage0_version", version)
	ctx := context.Background()
	tracerProvider, err := tracing.NewProviderFromEnv(ctx, log)
	if err != nil {
		log.Warnf("Failed to initialize tracing from environment: %v. Using NoOp tracer.", err)
		tracerProvider = tracing.NewNoOpProvider()
	}

	a := &app{
		log:     log,
		metrics: metrics.NewPrometheusRegistryProvider(),
		tracer:  tracerProvider.GetTracer(tracing.TracerName),
		stdout:  stdout,
		stderr:  stderr,
	}

	spanCtx, span := tracing.StartSpan(ctx, a.tracer, "stage0."+cmd.name, attribute.Int("args", len(rest)))
	code, err := cmd.run(spanCtx, a, rest)
	tracing.EndSpan(span, err)
	switch {
	case err == nil:
		log.LogCtx(spanCtx, slog.LevelDebug, "command finished", "command", cmd.name, "exit_code", code)
	case errors.Is(err, errUsage):
	default:
		log.Errorf("%s failed: %v", cmd.name, err)
	}

	if *metricsFile != "" {
		if err := a.metrics.WriteTextfile(*metricsFile); err != nil {
			log.Warnf("Failed to write metrics file '%s': %v", *metricsFile, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Error shutting down tracer provider: %v", err)
	}
	return code
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: stage0 [global flags] <command> [flags...]\n\n")
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w, "\nGlobal flags:")
	global.PrintDefaults()
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "stage0 version %s\n", version)
	fmt.Fprintf(w, "commit: %s\n", commit)
	fmt.Fprintf(w, "built: %s\n", buildDate)
	fmt.Fprintf(w, "go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// newFlagSet returns a subcommand flag set reporting to a.stderr.
func (a *app) newFlagSet(name, usage string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: stage0 %s\n\nFlags:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args into fs and maps failures to exit codes. pflag has
// already printed the problem and the usage text.
func parse(fs *pflag.FlagSet, args []string) (int, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitSuccess, fmt.Errorf("%w: help requested", errUsage)
		}
		return ExitUsageError, fmt.Errorf("%w: %v", errUsage, err)
	}
	return ExitSuccess, nil
}

// usage prints msg and the usage text of fs.
func (a *app) usage(fs *pflag.FlagSet, format string, args ...any) (int, error) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(a.stderr, "Error: %s\n", msg)
	fs.Usage()
	return ExitUsageError, fmt.Errorf("%w: %s", errUsage, msg)
}

func (a *app) store() (*config.Store, error) {
	opts, err := config.DefaultOptions()
	if err != nil {
		return nil, err
	}
	return config.NewStore(opts, a.log, a.metrics), nil
}

func runConfigure(ctx context.Context, a *app, args []string) (int, error) {
	store, err := a.store()
	if err != nil {
		return ExitFailure, err
	}
	fs := a.newFlagSet("configure", "configure [--set KEY=VALUE]... [--enable-X|--disable-X]... [--output PATH]")
	output := fs.StringP("output", "o", "", "Write the configuration to PATH instead of stdout")
	binder := store.Options.BindFlags(fs)
	if code, err := parse(fs, args); err != nil {
		return code, err
	}
	if fs.NArg() > 0 {
		return a.usage(fs, "unexpected arguments: %v", fs.Args())
	}

	ov := binder.Overrides()
	oteltrace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("stage0.flags", len(ov.Flags)),
		attribute.Int("stage0.sets", len(ov.Sets)),
	)
	doc, err := store.Generate(ov)
	if err != nil {
		var overrideErr *stage0errors.OverrideError
		if errors.As(err, &overrideErr) {
			return ExitUsageError, err
		}
		return ExitFailure, err
	}

	if *output == "" {
		if _, err := doc.WriteTo(a.stdout); err != nil {
			return ExitFailure, err
		}
		return ExitSuccess, nil
	}
	if err := store.Write(*output, doc); err != nil {
		return ExitFailure, err
	}
	return ExitSuccess, nil
}

func runGet(ctx context.Context, a *app, args []string) (int, error) {
	store, err := a.store()
	if err != nil {
		return ExitFailure, err
	}
	fs := a.newFlagSet("get", "get [--config PATH] [--section SECTION] KEY")
	configPath := fs.String("config", DefaultConfig, "Configuration file to read; missing means defaults")
	section := fs.String("section", "", "Look KEY up in this section only (KEY is then a leaf name)")
	if code, err := parse(fs, args); err != nil {
		return code, err
	}
	if fs.NArg() != 1 {
		return a.usage(fs, "exactly one KEY is required")
	}

	key := config.Key{Section: *section, Leaf: fs.Arg(0)}
	if *section == "" {
		if key, err = config.ParseKey(fs.Arg(0)); err != nil {
			return a.usage(fs, "invalid key: %v", err)
		}
	}
	oteltrace.SpanFromContext(ctx).SetAttributes(attribute.String("stage0.key", key.Path()))

	doc, err := store.Load(*configPath)
	if err != nil {
		return ExitFailure, err
	}
	v, ok := doc.LookupKey(key)
	if !ok {
		a.log.Debugf("Key %s is not set in %s", key, *configPath)
		return ExitFailure, nil
	}
	fmt.Fprintln(a.stdout, v.String())
	return ExitSuccess, nil
}

func runVerify(ctx context.Context, a *app, args []string) (int, error) {
	fs := a.newFlagSet("verify", "verify --file PATH --sha256 HEX [--verbose]")
	file := fs.String("file", "", "Artifact to verify (required)")
	expected := fs.String("sha256", "", "Expected lowercase hex SHA-256 digest (required)")
	verbose := fs.BoolP("verbose", "v", false, "Log expected and actual digests on mismatch")
	if code, err := parse(fs, args); err != nil {
		return code, err
	}
	if *file == "" || *expected == "" {
		return a.usage(fs, "--file and --sha256 are required")
	}
	oteltrace.SpanFromContext(ctx).SetAttributes(attribute.String("stage0.file", *file))

	v := &checksum.Verifier{Log: a.log, Verbose: *verbose, Metrics: a.metrics}
	ok, err := v.Verify(*file, *expected)
	if err != nil {
		return ExitFailure, err
	}
	if !ok {
		return ExitFailure, nil
	}
	return ExitSuccess, nil
}

func runSHA256(ctx context.Context, a *app, args []string) (int, error) {
	fs := a.newFlagSet("sha256", "sha256 PATH...")
	if code, err := parse(fs, args); err != nil {
		return code, err
	}
	if fs.NArg() == 0 {
		return a.usage(fs, "at least one PATH is required")
	}
	for _, path := range fs.Args() {
		digest, err := checksum.File(path)
		if err != nil {
			return ExitFailure, err
		}
		fmt.Fprintf(a.stdout, "%s  %s\n", digest, path)
	}
	return ExitSuccess, nil
}

func runStamp(ctx context.Context, a *app, args []string) (int, error) {
	if len(args) == 0 || (args[0] != "check" && args[0] != "record") {
		fmt.Fprintln(a.stderr, "Usage: stage0 stamp check|record [flags...]")
		return ExitUsageError, fmt.Errorf("%w: stamp needs check or record", errUsage)
	}
	action := args[0]

	fs := a.newFlagSet("stamp "+action, "stamp "+action+" (--path PATH | --build-dir DIR [--stage STAGE] --component NAME) --date DATE [--discriminator X]")
	path := fs.String("path", "", "Stamp file")
	buildDir := fs.String("build-dir", "", "Build directory; with --stage and --component selects <build-dir>/<stage>/.<component>-stamp")
	stage := fs.String("stage", "", "Stage directory under --build-dir")
	component := fs.String("component", "", "Component name")
	date := fs.String("date", "", "Identity of the current artifact, usually its YYYY-MM-DD release date (required)")
	discriminator := fs.String("discriminator", "", "Optional second identity field, such as a target triple")
	if code, err := parse(fs, args[1:]); err != nil {
		return code, err
	}
	if fs.NArg() > 0 {
		return a.usage(fs, "unexpected arguments: %v", fs.Args())
	}
	switch {
	case *path != "":
	case *buildDir != "" && *component != "":
		*path = stamp.Path(*buildDir, *stage, *component)
	default:
		return a.usage(fs, "--path or --build-dir with --component is required")
	}
	if *date == "" {
		return a.usage(fs, "--date is required")
	}
	key, err := stamp.NewKey(*date, *discriminator)
	if err != nil {
		return a.usage(fs, "%v", err)
	}
	oteltrace.SpanFromContext(ctx).SetAttributes(
		attribute.String("stage0.stamp", *path),
		attribute.String("stage0.key", key.String()),
	)

	oracle := stamp.NewOracle(a.log, a.metrics)
	if action == "record" {
		if err := oracle.RecordCurrent(*path, key); err != nil {
			return ExitFailure, err
		}
		return ExitSuccess, nil
	}

	stale, err := oracle.IsOutOfDate(*path, key)
	if err != nil {
		return ExitFailure, err
	}
	if stale {
		fmt.Fprintln(a.stdout, "stale")
		return ExitStale, nil
	}
	fmt.Fprintln(a.stdout, "fresh")
	return ExitSuccess, nil
}
