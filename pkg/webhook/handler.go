package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/google/go-github/v60/github"
)

// DefaultMaxBodyBytes bounds the payload size read by Handler.
const DefaultMaxBodyBytes = 25 << 20

// UnknownEventLabel replaces event names outside the catalog in metrics.
const UnknownEventLabel = "unknown"

// metricEvent keeps the event label set bounded by the known catalog.
func metricEvent(event string) string {
	if !IsKnownEvent(event) {
		return UnknownEventLabel
	}

	return event
}

// Delivery is a verified webhook delivery.
type Delivery struct {
	ID      string
	Event   string
	Payload []byte
	// AppID is set for ping deliveries when the Verifier asks for it.
	AppID int64
}

// Parse decodes the payload into the matching go-github event type, e.g.
// *github.PushEvent.
func (d *Delivery) Parse() (interface{}, error) {
	event, err := github.ParseWebHook(d.Event, d.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s payload: %w", d.Event, err)
	}

	return event, nil
}

// DeliveryFunc processes a verified delivery.
type DeliveryFunc func(ctx context.Context, delivery *Delivery) error

// Verifier holds the settings Handler verifies deliveries with.
type Verifier struct {
	Secret string
	// Events lists the accepted event names; "*" accepts every known event.
	Events          []string
	VerifyUserAgent bool
	ReturnAppID     bool
	MaxBodyBytes    int64
	Metrics         *octokit.Metrics
	Logger          octokit.Logger
}

// Verify runs Verify with the verifier's settings.
func (v *Verifier) Verify(headers http.Header, payload []byte) Outcome {
	var opts []Option

	if v.VerifyUserAgent {
		opts = append(opts, WithUserAgentCheck())
	}

	if v.ReturnAppID {
		opts = append(opts, WithAppID())
	}

	return Verify(headers, payload, v.Secret, v.Events, opts...)
}

// Handler answers 202 for verified deliveries that fn accepts, 400 for
// deliveries that fail verification and 500 when fn fails.
func (v *Verifier) Handler(fn DeliveryFunc) http.Handler {
	limit := v.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)

			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
		if err != nil {
			v.reject(w, r, "unreadable payload")

			return
		}

		outcome := v.Verify(r.Header, payload)
		if !outcome.Valid {
			v.reject(w, r, "verification failed")

			return
		}

		delivery := &Delivery{
			ID:      r.Header.Get(HeaderDelivery),
			Event:   r.Header.Get(HeaderEvent),
			Payload: payload,
			AppID:   outcome.AppID,
		}

		if v.Metrics != nil {
			v.Metrics.RecordWebhookDelivery(delivery.Event, true)
		}

		if fn != nil {
			err = fn(r.Context(), delivery)
			if err != nil {
				if v.Logger != nil {
					v.Logger.Error("Webhook delivery failed", map[string]interface{}{
						"delivery": delivery.ID,
						"event":    delivery.Event,
						"error":    err.Error(),
					})
				}

				http.Error(w, "delivery failed", http.StatusInternalServerError)

				return
			}
		}

		w.WriteHeader(http.StatusAccepted)
	})
}

func (v *Verifier) reject(w http.ResponseWriter, r *http.Request, reason string) {
	event := r.Header.Get(HeaderEvent)

	if v.Metrics != nil {
		v.Metrics.RecordWebhookDelivery(metricEvent(event), false)
	}

	if v.Logger != nil {
		v.Logger.Warn("Webhook delivery rejected", map[string]interface{}{
			"delivery": r.Header.Get(HeaderDelivery),
			"event":    event,
			"reason":   reason,
		})
	}

	http.Error(w, reason, http.StatusBadRequest)
}
