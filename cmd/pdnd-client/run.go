package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/StricklySoft/pdnd-client/pkg/assertion"
	"github.com/StricklySoft/pdnd-client/pkg/clients/redis"
	"github.com/StricklySoft/pdnd-client/pkg/config"
	"github.com/StricklySoft/pdnd-client/pkg/exchange"
	"github.com/StricklySoft/pdnd-client/pkg/pdnd"
	"github.com/StricklySoft/pdnd-client/pkg/tokencache"
	"github.com/StricklySoft/pdnd-client/pkg/tokensource"
)

// run obtains a voucher and performs the calls requested by opts.
func run(ctx context.Context, opts *options, stdout io.Writer, logger *slog.Logger) error {
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "configuration loaded",
		slog.String("environment", opts.environment),
		slog.String("client_id", settings.ClientID),
		slog.String("purpose_id", settings.PurposeID),
		slog.String("cache_backend", settings.CacheBackend),
	)

	filters, err := pdnd.ParseFilters(opts.filters)
	if err != nil {
		return err
	}

	signer, err := assertion.NewSigner(assertion.ConfigFromSettings(settings))
	if err != nil {
		return err
	}

	xcfg := exchange.ConfigFromSettings(settings)
	xcfg.InsecureSkipVerify = opts.noVerifySSL
	exchanger, err := exchange.NewExchanger(xcfg)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cred, err := tokensource.New(store, signer, exchanger, tokensource.WithLogger(logger)).Token(ctx)
	if err != nil {
		return err
	}

	if opts.statusURL == "" && opts.apiURL == "" {
		fmt.Fprintf(stdout, "Token: %s\nExpires: %s\n", cred.Token, cred.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	}

	client, err := pdnd.NewClient(pdnd.ClientConfig{
		APIURL:             opts.apiURL,
		StatusURL:          opts.statusURL,
		Filters:            filters,
		Token:              cred.Token,
		InsecureSkipVerify: opts.noVerifySSL,
		Debug:              opts.debug,
		Timeout:            settings.HTTPTimeout,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	if opts.statusURL != "" {
		status, body, err := client.GetStatus(ctx, "")
		if err != nil {
			return err
		}
		writeResponse(stdout, status, body, opts)
	}

	if opts.apiURL != "" {
		status, body, err := client.GetAPI(ctx, "")
		if err != nil {
			return err
		}
		writeResponse(stdout, status, body, opts)
	}
	return nil
}

// loadSettings reads the selected environment and applies the flags that
// override configuration.
func loadSettings(opts *options) (*config.Settings, error) {
	settings := &config.Settings{}
	err := config.New().
		WithFile(opts.configPath).
		WithEnvironment(opts.environment).
		WithEnvPrefix(envPrefix).
		Load(settings)
	if err != nil {
		return nil, err
	}
	if opts.timeout > 0 {
		settings.HTTPTimeout = opts.timeout
	}
	return settings, nil
}

// openStore returns the configured cache backend and a function releasing
// it. A Redis backend that does not answer a ping is an error.
func openStore(ctx context.Context, settings *config.Settings, logger *slog.Logger) (tokencache.Store, func(), error) {
	if strings.EqualFold(settings.CacheBackend, config.CacheBackendRedis) {
		client, err := redis.NewClient(redis.Config{URI: redis.Secret(settings.RedisURI.Value())})
		if err != nil {
			return nil, nil, err
		}
		if err := client.Health(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close redis client", slog.Any("error", err))
			}
		}
		return tokencache.NewRedisCache(client, settings.PurposeID, tokencache.WithLogger(logger)), closeFn, nil
	}

	opts := []tokencache.Option{tokencache.WithLogger(logger)}
	if settings.CacheDir != "" {
		opts = append(opts, tokencache.WithDir(settings.CacheDir))
	}
	return tokencache.NewFileCache(settings.PurposeID, opts...), func() {}, nil
}

// writeResponse prints body, re-indented when asked. Debug mode also
// prints the status code.
func writeResponse(w io.Writer, status int, body string, opts *options) {
	if opts.debug {
		fmt.Fprintf(w, "API URL Response [status_code: %d]\n", status)
	}
	if opts.pretty || opts.debug {
		body, _ = pdnd.PrettyJSON(body)
	}
	fmt.Fprintln(w, body)
}
