package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"recon-report/internal/gateway"
	"recon-report/internal/httpapi"
	"recon-report/internal/usecase"
)

func serveCommand(a *app) *cobra.Command {
	var sample bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the report API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// --- Dependency Injection ---
			docs := gateway.NewFileDocumentRepository(a.log.WithField("component", "documents"))
			matcher := a.matcher(sample)
			settings := a.cnf.ReportSettings()
			store := httpapi.NewSessionStore(a.cnf.SessionTTL(), func() *usecase.ReportSession {
				return usecase.NewReportSession(docs, matcher, settings, usecase.WithLogger(a.log))
			})

			var limiter *rate.Limiter
			if a.cnf.Server.RequestsPerSecond > 0 {
				limiter = rate.NewLimiter(rate.Limit(a.cnf.Server.RequestsPerSecond), a.cnf.Server.Burst)
			}
			handler := httpapi.NewHandler(store, docs, a.log.WithField("component", "http"))

			srv := &http.Server{
				Addr:              ":" + a.cnf.Server.Port,
				Handler:           httpapi.NewRouter(handler, limiter),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return runServer(ctx, srv, a.log)
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "answer every reconciliation with the bundled sample")
	return cmd
}

func runServer(ctx context.Context, srv *http.Server, log *logrus.Entry) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
