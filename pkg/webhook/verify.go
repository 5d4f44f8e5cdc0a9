// Package webhook verifies GitHub webhook deliveries.
//
// Verification never returns an error: every check resolves to a boolean so
// it can sit directly in a request handling path.
package webhook

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/google/go-github/v60/github"
	"github.com/google/uuid"
)

// Delivery headers.
const (
	HeaderDelivery     = "X-GitHub-Delivery"
	HeaderEvent        = "X-GitHub-Event"
	HeaderSignature    = "X-Hub-Signature"
	HeaderSignature256 = "X-Hub-Signature-256"
	HeaderUserAgent    = "User-Agent"
)

// UserAgentPrefix starts the User-Agent of every genuine delivery.
const UserAgentPrefix = "GitHub-Hookshot/"

// AllEvents in an allowed list accepts every known event.
const AllEvents = "*"

// EventPing is sent when a hook is created.
const EventPing = "ping"

//go:embed events.json
var eventsJSON []byte

var (
	loadEvents sync.Once
	knownList  []string
	knownSet   map[string]struct{}
)

func catalog() map[string]struct{} {
	loadEvents.Do(func() {
		_ = json.Unmarshal(eventsJSON, &knownList)
		sort.Strings(knownList)

		knownSet = make(map[string]struct{}, len(knownList))
		for _, event := range knownList {
			knownSet[event] = struct{}{}
		}
	})

	return knownSet
}

// KnownEvents returns the names of every webhook event GitHub sends.
func KnownEvents() []string {
	catalog()

	return slices.Clone(knownList)
}

// IsKnownEvent reports whether event is in the known event catalog.
func IsKnownEvent(event string) bool {
	_, ok := catalog()[event]

	return ok
}

// InvalidGUID reports whether id is not a canonical UUID string.
func InvalidGUID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return true
	}

	return parsed.String() != id
}

// InvalidEvent reports whether event is unknown or not allowed. An allowed
// list containing "*" allows every known event.
func InvalidEvent(event string, allowed []string) bool {
	if !IsKnownEvent(event) {
		return true
	}

	return !slices.Contains(allowed, event) && !slices.Contains(allowed, AllEvents)
}

// ValidUserAgent reports whether ua was sent by GitHub's hook service.
func ValidUserAgent(ua string) bool {
	return strings.HasPrefix(ua, UserAgentPrefix)
}

// ValidSignature checks the "algo=hexdigest" signature of payload. The
// SHA-256 header is preferred when both are present.
func ValidSignature(headers http.Header, payload []byte, secret string) bool {
	signature := headers.Get(HeaderSignature256)
	if signature == "" {
		signature = headers.Get(HeaderSignature)
	}

	if signature == "" {
		return false
	}

	return github.ValidateSignature(signature, payload, []byte(secret)) == nil
}

// Outcome is the result of Verify. AppID is set only for ping deliveries
// verified with WithAppID.
type Outcome struct {
	Valid bool
	AppID int64
}

type options struct {
	checkUserAgent bool
	returnAppID    bool
}

// Option configures Verify.
type Option func(*options)

// WithUserAgentCheck also requires a GitHub-Hookshot User-Agent.
func WithUserAgentCheck() Option {
	return func(o *options) {
		o.checkUserAgent = true
	}
}

// WithAppID extracts hook.app_id from valid ping payloads.
func WithAppID() Option {
	return func(o *options) {
		o.returnAppID = true
	}
}

// Verify checks a delivery's headers and signature. Header checks fail fast
// before the signature is computed.
func Verify(headers http.Header, payload []byte, secret string, events []string, opts ...Option) Outcome {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if InvalidGUID(headers.Get(HeaderDelivery)) {
		return Outcome{}
	}

	event := headers.Get(HeaderEvent)
	if InvalidEvent(event, events) {
		return Outcome{}
	}

	if o.checkUserAgent && !ValidUserAgent(headers.Get(HeaderUserAgent)) {
		return Outcome{}
	}

	if !ValidSignature(headers, payload, secret) {
		return Outcome{}
	}

	outcome := Outcome{Valid: true}

	if o.returnAppID && event == EventPing {
		outcome.AppID = pingAppID(payload)
	}

	return outcome
}

func pingAppID(payload []byte) int64 {
	body, err := octokit.ParseValue(payload)
	if err != nil {
		return 0
	}

	id, _ := body.Get("hook").Get("app_id").Int()

	return id
}
