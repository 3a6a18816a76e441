package probe

import (
	"context"
	"io"
	"net/http"

	"github.com/krzko/proxy-switcheroo/internal/rules"
)

// DefaultPortalProbeURL is a connectivity-check endpoint that answers 204
// with an empty body on the open internet. A captive portal intercepts it
// and answers a redirect or a login page instead.
const DefaultPortalProbeURL = "http://connectivitycheck.gstatic.com/generate_204"

// Detector reports the platform's captive-portal state.
type Detector interface {
	Detect(ctx context.Context) (rules.PortalState, error)
}

// HTTPPortalDetector infers the portal state from a connectivity-check
// request: an untouched 204 means unlocked, an intercepted response
// (redirect or substituted page) means locked, and an unreachable network
// means unknown.
type HTTPPortalDetector struct {
	client   *http.Client
	probeURL string
}

// NewHTTPPortalDetector builds a detector using the given client. The
// client must not follow redirects; the executor's client already has that
// behavior. An empty probeURL uses DefaultPortalProbeURL.
func NewHTTPPortalDetector(client *http.Client, probeURL string) *HTTPPortalDetector {
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	if probeURL == "" {
		probeURL = DefaultPortalProbeURL
	}
	return &HTTPPortalDetector{client: client, probeURL: probeURL}
}

func (d *HTTPPortalDetector) Detect(ctx context.Context) (rules.PortalState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.probeURL, nil)
	if err != nil {
		return rules.PortalUnknown, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		// Cancellation must surface as an abort, not as an unknown state.
		if ctx.Err() != nil {
			return rules.PortalUnknown, ctx.Err()
		}
		return rules.PortalUnknown, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return rules.PortalUnlocked, nil
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return rules.PortalLocked, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// The endpoint never serves a body; content means interception.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1))
		if len(body) > 0 {
			return rules.PortalLocked, nil
		}
		return rules.PortalUnlocked, nil
	default:
		return rules.PortalUnknown, nil
	}
}

// StaticPortalDetector always reports a fixed state. Used by tests and by
// deployments where the platform exposes portal state through other means.
type StaticPortalDetector struct {
	State rules.PortalState
}

func (d *StaticPortalDetector) Detect(context.Context) (rules.PortalState, error) {
	return d.State, nil
}
