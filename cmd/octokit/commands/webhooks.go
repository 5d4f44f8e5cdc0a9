package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fivetwenty-io/octokit/internal/constants"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/fivetwenty-io/octokit/pkg/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewWebhooksCommand creates the webhooks command group.
func NewWebhooksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "webhooks",
		Aliases: []string{"webhook", "hooks"},
		Short:   "Receive and verify webhook deliveries",
	}

	cmd.AddCommand(newWebhooksEventsCommand())
	cmd.AddCommand(newWebhooksServeCommand())

	return cmd
}

func newWebhooksEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List known webhook event names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, event := range webhook.KnownEvents() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), event)
			}

			return nil
		},
	}
}

func newWebhooksServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a webhook endpoint",
		Long: `Serve an HTTP endpoint that verifies webhook deliveries and prints every
accepted delivery as one JSON line. Prometheus metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			path, _ := cmd.Flags().GetString("path")
			verifyUA, _ := cmd.Flags().GetBool("verify-user-agent")

			config := loadConfig()

			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				secret = config.WebhookSecret
			}

			if secret == "" {
				return constants.ErrWebhookSecretMissing
			}

			events, _ := cmd.Flags().GetStringSlice("events")
			if len(events) == 0 {
				events = config.WebhookEvents
			}

			if len(events) == 0 {
				events = []string{webhook.AllEvents}
			}

			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())

			if viper.GetBool("verbose") {
				logger.SetLevel(logrus.DebugLevel)
			}

			registry := prometheus.NewRegistry()
			verifier := &webhook.Verifier{
				Secret:          secret,
				Events:          events,
				VerifyUserAgent: verifyUA,
				ReturnAppID:     true,
				Metrics:         octokit.NewMetrics(registry),
				Logger:          octokit.NewLogrusLogger(logger),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serveWebhooks(ctx, addr, newWebhookRouter(path, verifier, registry, newDeliveryPrinter(cmd.OutOrStdout())), logger)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("path", "/webhooks", "delivery path")
	cmd.Flags().String("secret", "", "webhook secret (default from config webhook_secret)")
	cmd.Flags().StringSlice("events", nil, "accepted events, * for all (default from config webhook_events)")
	cmd.Flags().Bool("verify-user-agent", false, "require a GitHub-Hookshot User-Agent")

	return cmd
}

// newWebhookRouter mounts the delivery handler at path next to health and
// metrics endpoints.
func newWebhookRouter(path string, verifier *webhook.Verifier, registry *prometheus.Registry, fn webhook.DeliveryFunc) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	r.Handle(path, verifier.Handler(fn))

	return r
}

func serveWebhooks(ctx context.Context, addr string, handler http.Handler, logger *logrus.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       constants.WebhookReadTimeout,
		ReadHeaderTimeout: constants.WebhookReadTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.WithField("addr", addr).Info("Listening for webhook deliveries")

		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("webhook server failed: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShortHTTPTimeout)
	defer cancel()

	logger.Info("Shutting down webhook server")

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shut down webhook server: %w", err)
	}

	return nil
}

type deliveryLine struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	AppID   int64  `json:"app_id,omitempty"`
	Payload any    `json:"payload"`
}

// newDeliveryPrinter writes each delivery as one JSON line.
func newDeliveryPrinter(w io.Writer) webhook.DeliveryFunc {
	var mu sync.Mutex

	encoder := json.NewEncoder(w)

	return func(_ context.Context, delivery *webhook.Delivery) error {
		mu.Lock()
		defer mu.Unlock()

		line := deliveryLine{ID: delivery.ID, Event: delivery.Event, AppID: delivery.AppID}
		if json.Valid(delivery.Payload) {
			line.Payload = json.RawMessage(delivery.Payload)
		} else {
			line.Payload = string(delivery.Payload)
		}

		return encoder.Encode(line)
	}
}
