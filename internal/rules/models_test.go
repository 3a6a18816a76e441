package rules

import (
	"strings"
	"testing"
)

func TestTriggerSetTriggers(t *testing.T) {
	ts := TriggerSet{
		Reachability: &ReachabilityTrigger{URL: "http://intranet.corp.example/ping"},
		ManualFlag:   &ManualFlagTrigger{Value: true},
	}
	got := ts.Triggers()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	kinds := map[TriggerKind]bool{}
	for _, tr := range got {
		kinds[tr.Kind()] = true
	}
	if !kinds[KindReachability] || !kinds[KindManualFlag] {
		t.Errorf("kinds = %v", kinds)
	}

	if !(TriggerSet{}).Empty() {
		t.Error("zero TriggerSet should be empty")
	}
	if ts.Empty() {
		t.Error("populated TriggerSet should not be empty")
	}
}

func TestCacheKeyStableAcrossEquivalentTriggers(t *testing.T) {
	a := &DNSResolveTrigger{Hostname: "db.corp.example", ExpectIPCIDR: []string{"10.0.0.0/8"}}
	b := &DNSResolveTrigger{Hostname: "db.corp.example", ExpectIPCIDR: []string{"10.0.0.0/8"}}
	if CacheKey(a) != CacheKey(b) {
		t.Errorf("equal triggers must share a key: %q vs %q", CacheKey(a), CacheKey(b))
	}
}

func TestCacheKeyDistinguishesParams(t *testing.T) {
	base := CacheKey(&ReachabilityTrigger{URL: "http://a.example"})
	tests := []struct {
		name string
		trig Trigger
	}{
		{"different url", &ReachabilityTrigger{URL: "http://b.example"}},
		{"different method", &ReachabilityTrigger{URL: "http://a.example", Method: "GET"}},
		{"different status", &ReachabilityTrigger{URL: "http://a.example", ExpectStatus: 204}},
		{"different kind", &DNSResolveTrigger{Hostname: "a.example"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CacheKey(tt.trig); got == base {
				t.Errorf("key collision with %q", base)
			}
		})
	}
}

func TestCacheKeyStartsWithKind(t *testing.T) {
	for _, trig := range []Trigger{
		&ReachabilityTrigger{URL: "http://a.example"},
		&DNSResolveTrigger{Hostname: "a.example"},
		&CaptivePortalTrigger{State: PortalUnlocked},
		&IPInfoTrigger{ExpectOrg: "ACME"},
		&TimeWindowTrigger{Days: []int{1}},
		&ManualFlagTrigger{Value: true},
	} {
		key := CacheKey(trig)
		if !strings.HasPrefix(key, string(trig.Kind())+":") {
			t.Errorf("key %q does not start with kind %q", key, trig.Kind())
		}
	}
}
