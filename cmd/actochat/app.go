package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/rickgao/acto-client/internal/api"
	"github.com/rickgao/acto-client/internal/config"
	"github.com/rickgao/acto-client/internal/connection"
	"github.com/rickgao/acto-client/internal/format"
	"github.com/rickgao/acto-client/internal/metrics"
	"github.com/rickgao/acto-client/internal/session"
	"github.com/rickgao/acto-client/internal/version"
)

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg    *config.ClientConfig
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
	json   bool

	store     session.Store
	creds     *session.Credentials
	client    *api.Client
	formatter *format.Formatter

	registry        *prometheus.Registry
	realtimeMetrics *metrics.Realtime
}

type appOptions struct {
	configPath string
	logLevel   string
	json       bool
}

func newApp(ctx context.Context, opts appOptions, out, errOut io.Writer) (*app, error) {
	cfg, err := config.LoadAndValidate(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger, err := newLogger(cfg.Log, errOut)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	logger.Debug("configuration loaded",
		"version", version.Version,
		"config", opts.configPath,
		"api_url", cfg.API.BaseURL,
		"session_driver", cfg.Session.Driver,
	)

	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	creds := session.NewCredentials(store, cfg.Session.Key, logger)

	formatter, err := format.NewFromString(cfg.Format.Locale)
	if err != nil {
		store.Close()
		return nil, err
	}
	if cfg.Format.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Format.Timezone)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("load timezone: %w", err)
		}
		formatter.Location = loc
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &app{
		cfg:             cfg,
		logger:          logger,
		out:             out,
		errOut:          errOut,
		json:            opts.json,
		store:           store,
		creds:           creds,
		formatter:       formatter,
		registry:        registry,
		realtimeMetrics: metrics.NewRealtime(registry),
	}

	clientOpts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLoginPath(cfg.API.LoginPath),
		api.WithUserAgent(version.UserAgent()),
		api.WithMetrics(metrics.NewHTTP(registry)),
		api.WithSessionExpired(a.sessionExpired),
	}
	if cfg.API.RateLimit > 0 {
		burst := int(cfg.API.RateLimit)
		if burst < 1 {
			burst = 1
		}
		clientOpts = append(clientOpts, api.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.API.RateLimit), burst)))
	}
	a.client = api.NewClient(cfg.API.BaseURL, creds, clientOpts...)

	return a, nil
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// sessionExpired is the terminal's version of sending the user to the login
// page.
func (a *app) sessionExpired(_ context.Context, loginPath string) {
	fmt.Fprintf(a.errOut, "session expired (%s): run \"actochat login\" to sign in again\n", loginPath)
}

func (a *app) newManager() *connection.Manager {
	return connection.NewManager(connection.ManagerConfig{
		URL:               a.cfg.Realtime.URL,
		UserAgent:         version.UserAgent(),
		ConnectTimeout:    a.cfg.Realtime.ConnectTimeout,
		WriteTimeout:      a.cfg.Realtime.WriteTimeout,
		ReconnectAttempts: a.cfg.Realtime.ReconnectAttempts,
		ReconnectDelay:    a.cfg.Realtime.ReconnectDelay,
		Metrics:           a.realtimeMetrics,
	}, a.creds, a.logger.With("component", "realtime"))
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// newLogger builds the slog handler described by cfg.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}
