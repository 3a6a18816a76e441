package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/krzko/proxy-switcheroo/internal/diag"
	"github.com/krzko/proxy-switcheroo/internal/netmatch"
	"github.com/krzko/proxy-switcheroo/internal/rules"
	"github.com/krzko/proxy-switcheroo/internal/telemetry"
)

// Default per-probe timeouts and provider endpoint.
const (
	DefaultReachabilityTimeout = 10 * time.Second
	DefaultDNSTimeout          = 5 * time.Second
	DefaultIPInfoTimeout       = 15 * time.Second

	DefaultIPInfoProviderURL = "https://ipinfo.io/json"

	maxIPInfoBodySize = 64 * 1024
)

// Timeouts carries the per-kind probe timeouts. Zero fields use defaults.
type Timeouts struct {
	Reachability time.Duration
	DNS          time.Duration
	IPInfo       time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Reachability <= 0 {
		t.Reachability = DefaultReachabilityTimeout
	}
	if t.DNS <= 0 {
		t.DNS = DefaultDNSTimeout
	}
	if t.IPInfo <= 0 {
		t.IPInfo = DefaultIPInfoTimeout
	}
	return t
}

// Resolver is the DNS facility the executor queries. *net.Resolver
// satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// Options configures an Executor. All fields are optional.
type Options struct {
	// HTTPClient is used for reachability, IP-info, and portal probes.
	// The executor never follows redirects with it.
	HTTPClient *http.Client
	Resolver   Resolver
	Portal     Detector
	Timeouts   Timeouts
	Sink       diag.Sink
	Now        func() time.Time
}

// Executor runs one trigger's live measurement per call. All in-flight
// network probes can be cancelled at once with AbortAll; each aborted probe
// resolves as a non-success result, never as an error or a leak.
type Executor struct {
	client   *http.Client
	resolver Resolver
	portal   Detector
	timeouts Timeouts
	diag     *diag.Emitter
	now      func() time.Time

	abort *abortGate
}

// NewExecutor builds an executor with the given options.
func NewExecutor(opts Options) *Executor {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	// Redirects are evaluated on their own status code, never followed.
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	portal := opts.Portal
	if portal == nil {
		portal = NewHTTPPortalDetector(client, "")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Executor{
		client:   client,
		resolver: resolver,
		portal:   portal,
		timeouts: opts.Timeouts.withDefaults(),
		diag:     diag.NewEmitter(opts.Sink, "probe"),
		now:      now,
		abort:    newAbortGate(),
	}
}

// Execute runs the measurement for one trigger and reports the outcome.
// It never returns an error; all failures are folded into the Result.
func (e *Executor) Execute(ctx context.Context, t rules.Trigger) Result {
	start := time.Now()

	var res Result
	switch trig := t.(type) {
	case *rules.ReachabilityTrigger:
		res = e.probeReachability(ctx, trig)
	case *rules.DNSResolveTrigger:
		res = e.probeDNSResolve(ctx, trig)
	case *rules.CaptivePortalTrigger:
		res = e.probeCaptivePortal(ctx, trig)
	case *rules.IPInfoTrigger:
		res = e.probeIPInfo(ctx, trig)
	case *rules.TimeWindowTrigger:
		res = e.probeTimeWindow(trig)
	case *rules.ManualFlagTrigger:
		res = e.probeManualFlag(trig)
	default:
		res = fail(e.now().UTC(), fmt.Sprintf("unknown trigger kind %q", t.Kind()), nil)
	}

	outcome := "failure"
	if res.Success {
		outcome = "success"
	}
	telemetry.Probes.WithLabelValues(string(t.Kind()), outcome).Inc()
	telemetry.ProbeDur.WithLabelValues(string(t.Kind())).Observe(time.Since(start).Seconds())
	e.diag.Debug("probe executed", map[string]any{
		"kind":    string(t.Kind()),
		"success": res.Success,
		"error":   res.Error,
	})
	return res
}

// AbortAll cancels every in-flight network probe. Each one resolves
// promptly as a non-success result with an abort-indicating error.
// Already-completed probes and cached results are unaffected.
func (e *Executor) AbortAll() {
	e.abort.trip()
	e.diag.Info("aborted all in-flight probes", nil)
}

// probeCtx derives a context bounded by the probe timeout, the caller's
// context, and the executor-wide abort gate.
func (e *Executor) probeCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	pctx, cancel := context.WithTimeout(e.abort.current(), timeout)
	stop := context.AfterFunc(ctx, cancel)
	return pctx, func() {
		stop()
		cancel()
	}
}

// describeNetErr maps context/transport failures onto stable probe error
// strings so callers can distinguish aborts and timeouts from plain
// network failures.
func describeNetErr(pctx context.Context, err error) string {
	switch {
	case errors.Is(pctx.Err(), context.Canceled):
		return "probe aborted"
	case errors.Is(pctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return "probe timed out"
	default:
		return err.Error()
	}
}

func (e *Executor) probeReachability(ctx context.Context, trig *rules.ReachabilityTrigger) Result {
	ts := e.now().UTC()
	method := trig.Method
	if method == "" {
		method = http.MethodHead
	}
	expect := trig.ExpectStatus
	if expect == 0 {
		expect = http.StatusOK
	}

	pctx, cancel := e.probeCtx(ctx, e.timeouts.Reachability)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, method, trig.URL, nil)
	if err != nil {
		return fail(ts, fmt.Sprintf("invalid reachability request: %v", err), nil)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := e.client.Do(req)
	if err != nil {
		return fail(ts, describeNetErr(pctx, err), map[string]any{"url": trig.URL})
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	data := map[string]any{"url": trig.URL, "status": resp.StatusCode}
	if resp.StatusCode != expect {
		return fail(ts, fmt.Sprintf("unexpected status %d (want %d)", resp.StatusCode, expect), data)
	}
	return succeed(ts, data)
}

func (e *Executor) probeDNSResolve(ctx context.Context, trig *rules.DNSResolveTrigger) Result {
	ts := e.now().UTC()

	pctx, cancel := e.probeCtx(ctx, e.timeouts.DNS)
	defer cancel()

	addrs, err := e.resolver.LookupHost(pctx, trig.Hostname)
	if err != nil {
		return fail(ts, describeNetErr(pctx, err), map[string]any{"hostname": trig.Hostname})
	}
	if len(addrs) == 0 {
		return fail(ts, "no addresses resolved", map[string]any{"hostname": trig.Hostname})
	}

	data := map[string]any{"hostname": trig.Hostname, "addresses": addrs}
	// Canonical name is diagnostic only; a CNAME lookup failure is not a
	// probe failure.
	if cname, cerr := e.resolver.LookupCNAME(pctx, trig.Hostname); cerr == nil && cname != "" {
		data["canonicalName"] = strings.TrimSuffix(cname, ".")
	}

	if len(trig.ExpectIPCIDR) > 0 {
		if trig.Matches == rules.MatchExact {
			// Exact mode selects strict string equality over the same list,
			// replacing the CIDR containment test.
			if !anyExactMember(addrs, trig.ExpectIPCIDR) {
				return fail(ts, "no resolved address exactly matches the expected list", data)
			}
		} else {
			if !anyInCIDRs(addrs, trig.ExpectIPCIDR) {
				return fail(ts, "no resolved address falls inside the expected ranges", data)
			}
		}
	}
	return succeed(ts, data)
}

func anyExactMember(addrs, expected []string) bool {
	for _, a := range addrs {
		for _, want := range expected {
			if a == want {
				return true
			}
		}
	}
	return false
}

func anyInCIDRs(addrs, cidrs []string) bool {
	for _, a := range addrs {
		if netmatch.InAnyCIDR(a, cidrs) {
			return true
		}
	}
	return false
}

func (e *Executor) probeCaptivePortal(ctx context.Context, trig *rules.CaptivePortalTrigger) Result {
	ts := e.now().UTC()

	pctx, cancel := e.probeCtx(ctx, e.timeouts.Reachability)
	defer cancel()

	state, err := e.portal.Detect(pctx)
	if err != nil {
		return fail(ts, describeNetErr(pctx, err), nil)
	}

	data := map[string]any{"state": string(state), "expected": string(trig.State)}
	if state != trig.State {
		return fail(ts, fmt.Sprintf("portal state is %q (want %q)", state, trig.State), data)
	}
	return succeed(ts, data)
}

// ipInfoResponse covers the fields shared by the common public
// IP-geolocation JSON providers.
type ipInfoResponse struct {
	IP      string `json:"ip"`
	Org     string `json:"org"`
	Country string `json:"country"`
	City    string `json:"city"`
	Region  string `json:"region"`
}

func (e *Executor) probeIPInfo(ctx context.Context, trig *rules.IPInfoTrigger) Result {
	ts := e.now().UTC()
	providerURL := trig.ProviderURL
	if providerURL == "" {
		providerURL = DefaultIPInfoProviderURL
	}

	pctx, cancel := e.probeCtx(ctx, e.timeouts.IPInfo)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodGet, providerURL, nil)
	if err != nil {
		return fail(ts, fmt.Sprintf("invalid ipInfo request: %v", err), nil)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fail(ts, describeNetErr(pctx, err), map[string]any{"providerUrl": providerURL})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(ts, fmt.Sprintf("provider returned status %d", resp.StatusCode),
			map[string]any{"providerUrl": providerURL})
	}

	var info ipInfoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxIPInfoBodySize)).Decode(&info); err != nil {
		return fail(ts, fmt.Sprintf("malformed provider response: %v", err),
			map[string]any{"providerUrl": providerURL})
	}

	data := map[string]any{
		"ip":      info.IP,
		"org":     info.Org,
		"country": info.Country,
	}
	if trig.ExpectOrg != "" && !strings.Contains(strings.ToLower(info.Org), strings.ToLower(trig.ExpectOrg)) {
		return fail(ts, fmt.Sprintf("org %q does not contain %q", info.Org, trig.ExpectOrg), data)
	}
	if trig.ExpectCountry != "" && !strings.EqualFold(info.Country, trig.ExpectCountry) {
		return fail(ts, fmt.Sprintf("country %q is not %q", info.Country, trig.ExpectCountry), data)
	}
	return succeed(ts, data)
}

// probeTimeWindow is pure and synchronous: no network, no suspension.
func (e *Executor) probeTimeWindow(trig *rules.TimeWindowTrigger) Result {
	now := e.now()
	ts := now.UTC()

	// ISO weekday: Monday=1 .. Sunday=7 (Go's Sunday=0 maps to 7).
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	hhmm := now.Format("15:04")
	data := map[string]any{"weekday": weekday, "time": hhmm}

	if len(trig.Days) > 0 {
		inDay := false
		for _, d := range trig.Days {
			if d == weekday {
				inDay = true
				break
			}
		}
		if !inDay {
			return fail(ts, fmt.Sprintf("weekday %d is outside the configured days", weekday), data)
		}
	}
	if trig.From != "" && trig.To != "" {
		// Inclusive lexical comparison on "HH:MM".
		if hhmm < trig.From || hhmm > trig.To {
			return fail(ts, fmt.Sprintf("time %s is outside window [%s, %s]", hhmm, trig.From, trig.To), data)
		}
	}
	return succeed(ts, data)
}

// probeManualFlag is pure and synchronous.
func (e *Executor) probeManualFlag(trig *rules.ManualFlagTrigger) Result {
	ts := e.now().UTC()
	data := map[string]any{"value": trig.Value}
	if !trig.Value {
		return fail(ts, "manual flag is false", data)
	}
	return succeed(ts, data)
}
