package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacoelho/xmlcatalog"
	"github.com/jacoelho/xmlcatalog/config"
)

var errNotFound = errors.New("no match")

// usageError marks command line mistakes; they exit with status 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runWithArgs(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func runWithArgs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	if writeErr := writef(stderr, "error: %v\n", err); writeErr != nil {
		return 1
	}
	var usage usageError
	if errors.As(err, &usage) {
		if writeErr := writeln(stderr, cmd.UsageString()); writeErr != nil {
			return 1
		}
		return 2
	}
	return 1
}

type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	catalogs   []string
	cacheDir   string
	prefer     string
	logLevel   string
	offline    bool
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xmlcatalog",
		Short: "Resolve identifiers through XML catalogs",
		Long: `xmlcatalog resolves system identifiers, public identifiers and URIs
through OASIS XML catalogs, optionally backed by a local resource cache.

Configuration is read from ~/.config/xmlcatalog/config.yaml, the file named
by XML_CATALOG_CONFIG, the XML_CATALOG_* variables and finally the flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file path (YAML)")
	flags.StringArrayVar(&a.catalogs, "catalog", nil, "catalog file or URI, repeatable; replaces the configured list")
	flags.StringVar(&a.cacheDir, "cache-dir", "", "enable the resource cache in this directory")
	flags.StringVar(&a.prefer, "prefer", "", "default prefer value (public, system)")
	flags.BoolVar(&a.offline, "offline", false, "never probe origins for cache staleness")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(a.lookupCmd(), a.resolveCmd(), a.cacheCmd())
	return cmd
}

func (a *app) newResolver() (*xmlcatalog.Resolver, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return nil, usageError{fmt.Errorf("invalid --log-level %q", a.logLevel)}
	}
	logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if a.configPath != "" {
		fileCfg, err := config.LoadFromFile(a.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}
	if len(a.catalogs) > 0 {
		cfg.Catalogs = a.catalogs
	}
	if a.prefer != "" {
		cfg.Prefer = a.prefer
	}
	if a.cacheDir != "" {
		cfg.Cache.Dir = a.cacheDir
		cfg.Cache.Enabled = true
	}
	if a.offline {
		cfg.Offline = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageError{err}
	}
	return xmlcatalog.New(xmlcatalog.NewOptions().WithConfig(cfg).WithLogger(logger))
}

// withResolver adapts fn into a cobra RunE that builds the resolver first.
func (a *app) withResolver(fn func(cmd *cobra.Command, r *xmlcatalog.Resolver, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		r, err := a.newResolver()
		if err != nil {
			return err
		}
		return fn(cmd, r, args)
	}
}

func (a *app) printMatch(id, resolved string, ok bool) error {
	if !ok {
		return fmt.Errorf("%s: %w", id, errNotFound)
	}
	return writeln(a.stdout, resolved)
}

func exactArgs(n int) cobra.PositionalArgs {
	return usage(cobra.ExactArgs(n))
}

func usage(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
