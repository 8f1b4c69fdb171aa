package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// envPrefix prefixes every environment variable override.
const envPrefix = "PDND"

// options holds the parsed command line.
type options struct {
	configPath  string
	environment string
	apiURL      string
	statusURL   string
	filters     string
	debug       bool
	pretty      bool
	noVerifySSL bool
	timeout     time.Duration
	envFile     string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "pdnd-client",
		Short: "PDND interoperability client",
		Long: `Obtains a voucher from the PDND authorization server with a signed
client assertion, caches it until it expires, and uses it to call
e-service endpoints.

Without --status-url or --api-url the voucher itself is printed.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadDotEnv(opts.envFile); err != nil {
				return err
			}
			logger := newLogger(stderr, opts.debug)
			return run(cmd.Context(), opts, stdout, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "configs/config.json", "configuration file (JSON or YAML)")
	f.StringVar(&opts.environment, "env", "produzione", "environment section of the configuration file")
	f.StringVar(&opts.apiURL, "api-url", "", "e-service URL to GET with the voucher")
	f.StringVar(&opts.statusURL, "status-url", "", "status URL to GET with the voucher")
	f.StringVar(&opts.filters, "api-url-filters", "", `query filters for --api-url, as "k1=v1&k2=v2"`)
	f.BoolVar(&opts.debug, "debug", false, "verbose logging and re-indented JSON responses")
	f.BoolVar(&opts.pretty, "pretty", false, "re-indent JSON responses")
	f.BoolVar(&opts.noVerifySSL, "no-verify-ssl", false, "skip TLS certificate verification")
	f.DurationVar(&opts.timeout, "timeout", 0, "timeout of each HTTP request (default from configuration, 30s)")
	f.StringVar(&opts.envFile, "env-file", ".env", "file of PDND_* variables loaded when present")

	return cmd
}

// loadDotEnv loads path into the process environment. A missing file is
// not an error; variables already set win.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return sserr.Wrapf(err, sserr.CodeConfiguration, "pdnd-client: failed to load %s", path)
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
