package rules

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// TriggerKind identifies one of the six supported condition tests.
type TriggerKind string

// Supported trigger kinds (string values for clean JSON serialization).
const (
	KindReachability  TriggerKind = "reachability"
	KindDNSResolve    TriggerKind = "dnsResolve"
	KindCaptivePortal TriggerKind = "captivePortal"
	KindIPInfo        TriggerKind = "ipInfo"
	KindTimeWindow    TriggerKind = "timeWindow"
	KindManualFlag    TriggerKind = "manualFlag"
)

// Kinds lists every trigger kind in evaluation order.
func Kinds() []TriggerKind {
	return []TriggerKind{
		KindReachability,
		KindDNSResolve,
		KindCaptivePortal,
		KindIPInfo,
		KindTimeWindow,
		KindManualFlag,
	}
}

// Trigger is one named condition test with its parameters. The set of
// implementations is closed: exactly one per TriggerKind.
type Trigger interface {
	Kind() TriggerKind
}

// ReachabilityTrigger probes a URL and succeeds when the response status
// matches ExpectStatus. Redirects are not followed; a redirect response is
// judged on its own status code.
type ReachabilityTrigger struct {
	URL          string `json:"url" yaml:"url"`
	Method       string `json:"method,omitempty" yaml:"method,omitempty"`             // default HEAD
	ExpectStatus int    `json:"expectStatus,omitempty" yaml:"expectStatus,omitempty"` // default 200
}

func (*ReachabilityTrigger) Kind() TriggerKind { return KindReachability }

// DNSMatchMode selects how resolved addresses are tested against ExpectIPCIDR.
type DNSMatchMode string

const (
	// MatchCIDR requires at least one resolved address to fall inside at
	// least one listed CIDR range.
	MatchCIDR DNSMatchMode = ""
	// MatchExact requires exact string membership of a resolved address in
	// the ExpectIPCIDR list. It replaces the CIDR containment test rather
	// than combining with it.
	MatchExact DNSMatchMode = "exact"
	// MatchRegex is accepted for configuration compatibility and currently
	// behaves like MatchCIDR.
	MatchRegex DNSMatchMode = "regex"
)

// DNSResolveTrigger resolves a hostname and optionally tests the resolved
// addresses against expected ranges.
type DNSResolveTrigger struct {
	Hostname     string       `json:"hostname" yaml:"hostname"`
	Matches      DNSMatchMode `json:"matches,omitempty" yaml:"matches,omitempty"`
	ExpectIPCIDR []string     `json:"expectIPCIDR,omitempty" yaml:"expectIPCIDR,omitempty"`
}

func (*DNSResolveTrigger) Kind() TriggerKind { return KindDNSResolve }

// PortalState is the captive-portal state reported by the platform detector.
type PortalState string

const (
	PortalLocked   PortalState = "locked"
	PortalUnlocked PortalState = "unlocked"
	PortalUnknown  PortalState = "unknown"
)

// CaptivePortalTrigger succeeds when the detected portal state equals State.
type CaptivePortalTrigger struct {
	State PortalState `json:"state" yaml:"state"`
}

func (*CaptivePortalTrigger) Kind() TriggerKind { return KindCaptivePortal }

// IPInfoTrigger fetches JSON from a public IP-geolocation provider and
// matches the reported organisation and/or country.
type IPInfoTrigger struct {
	ProviderURL   string `json:"providerUrl,omitempty" yaml:"providerUrl,omitempty"`
	ExpectOrg     string `json:"expectOrg,omitempty" yaml:"expectOrg,omitempty"`         // case-insensitive substring
	ExpectCountry string `json:"expectCountry,omitempty" yaml:"expectCountry,omitempty"` // case-insensitive exact
}

func (*IPInfoTrigger) Kind() TriggerKind { return KindIPInfo }

// TimeWindowTrigger succeeds when the current local time falls inside the
// configured weekday/time-of-day window. Days use ISO numbering: 1=Monday
// through 7=Sunday. From/To are inclusive "HH:MM" bounds compared lexically.
type TimeWindowTrigger struct {
	Days []int  `json:"days,omitempty" yaml:"days,omitempty"`
	From string `json:"from,omitempty" yaml:"from,omitempty"`
	To   string `json:"to,omitempty" yaml:"to,omitempty"`
	TZ   string `json:"tz,omitempty" yaml:"tz,omitempty"` // only "system" is supported
}

func (*TimeWindowTrigger) Kind() TriggerKind { return KindTimeWindow }

// ManualFlagTrigger is an escape hatch for externally-set conditions: the
// probe succeeds iff Value is true.
type ManualFlagTrigger struct {
	Value bool `json:"value" yaml:"value"`
}

func (*ManualFlagTrigger) Kind() TriggerKind { return KindManualFlag }

// TriggerSet holds at most one trigger per kind. All present triggers are
// combined with AND semantics; an empty set never matches.
type TriggerSet struct {
	Reachability  *ReachabilityTrigger  `json:"reachability,omitempty" yaml:"reachability,omitempty"`
	DNSResolve    *DNSResolveTrigger    `json:"dnsResolve,omitempty" yaml:"dnsResolve,omitempty"`
	CaptivePortal *CaptivePortalTrigger `json:"captivePortal,omitempty" yaml:"captivePortal,omitempty"`
	IPInfo        *IPInfoTrigger        `json:"ipInfo,omitempty" yaml:"ipInfo,omitempty"`
	TimeWindow    *TimeWindowTrigger    `json:"timeWindow,omitempty" yaml:"timeWindow,omitempty"`
	ManualFlag    *ManualFlagTrigger    `json:"manualFlag,omitempty" yaml:"manualFlag,omitempty"`
}

// Triggers returns the present triggers in a fixed kind order.
func (ts TriggerSet) Triggers() []Trigger {
	out := make([]Trigger, 0, 6)
	if ts.Reachability != nil {
		out = append(out, ts.Reachability)
	}
	if ts.DNSResolve != nil {
		out = append(out, ts.DNSResolve)
	}
	if ts.CaptivePortal != nil {
		out = append(out, ts.CaptivePortal)
	}
	if ts.IPInfo != nil {
		out = append(out, ts.IPInfo)
	}
	if ts.TimeWindow != nil {
		out = append(out, ts.TimeWindow)
	}
	if ts.ManualFlag != nil {
		out = append(out, ts.ManualFlag)
	}
	return out
}

// Empty reports whether no trigger is configured.
func (ts TriggerSet) Empty() bool { return len(ts.Triggers()) == 0 }

// Action names the profile a matching rule activates.
type Action struct {
	SetActiveProfile string `json:"setActiveProfile" yaml:"setActiveProfile"`
}

// Rule is a named, prioritized, enableable AND-combination of triggers.
// Rules are immutable value records during an evaluation pass; the engine
// only reads snapshots supplied by the store.
type Rule struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	Enabled  bool       `json:"enabled" yaml:"enabled"`
	Priority int        `json:"priority" yaml:"priority"` // lower = evaluated first
	When     TriggerSet `json:"when" yaml:"when"`
	Then     Action     `json:"then" yaml:"then"`
}

// CacheKey builds the deterministic probe-cache key for a trigger:
// kind plus an xxhash of the canonically serialized parameters. Struct
// fields marshal in declaration order, so two structurally equal triggers
// always produce the same key regardless of how they were built.
func CacheKey(t Trigger) string {
	blob, err := json.Marshal(t)
	if err != nil {
		// Trigger params are plain data; marshal cannot realistically fail.
		// Fall back to a kind-only key, which degrades to coarser caching.
		return string(t.Kind())
	}
	return fmt.Sprintf("%s:%016x", t.Kind(), xxhash.Sum64(blob))
}
