package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/acto-client/internal/connection"
)

var errRealtimeLost = errors.New("realtime connection lost")

func listenCmd(get func() *app) *cobra.Command {
	var joins []string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stay connected and print realtime events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return listen(ctx, a, joins, metricsAddr)
		},
	}
	cmd.Flags().StringSliceVar(&joins, "join", nil, "chat id to join (repeatable)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func listen(ctx context.Context, a *app, joins []string, metricsAddr string) error {
	mgr := a.newManager()
	defer mgr.Disconnect()

	for _, event := range connection.ForwardedEvents {
		mgr.On(event, func(data json.RawMessage) {
			a.printf("%s %s\n", event, data)
		})
	}

	// Rooms are joined once the server accepts the token, after every reconnect.
	mgr.OnStateChange(func(old, next connection.State) {
		a.logger.Info("realtime state", "from", old, "to", next)
		if next == connection.StateAuthenticated {
			for _, id := range joins {
				mgr.JoinChat(id)
			}
		}
	})

	if len(joins) > 0 && a.creds.Token(ctx) == "" {
		a.logger.Warn("not logged in, chats will not be joined")
	}

	sock, err := mgr.Connect(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		server := &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			a.logger.Info("starting metrics server", "addr", metricsAddr, "path", a.cfg.Metrics.Path)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				a.logger.Info("shutting down")
				mgr.Disconnect()
				return nil
			case <-ticker.C:
				if sock.Dead() {
					return errRealtimeLost
				}
			}
		}
	})

	return g.Wait()
}
