package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/rules"
	"github.com/krzko/proxy-switcheroo/internal/testutil"
)

const adminKey = "test-admin-key"

func authHeader() map[string]string {
	return map[string]string{"Authorization": "Bearer " + adminKey}
}

func TestHealthz(t *testing.T) {
	srv, _ := testutil.NewTestServer(t, adminKey)
	rr := (&testutil.HTTPRequest{Method: "GET", Path: "/healthz"}).Do(t, srv.Router())
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	srv, _ := testutil.NewTestServer(t, adminKey)
	router := srv.Router()

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing token", nil, http.StatusUnauthorized},
		{"wrong token", map[string]string{"Authorization": "Bearer nope"}, http.StatusForbidden},
		{"valid token", authHeader(), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := (&testutil.HTTPRequest{
				Method:  "POST",
				Path:    "/v1/auto",
				Body:    `{"enabled":true}`,
				Headers: tt.headers,
			}).Do(t, router)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRuleCRUD(t *testing.T) {
	srv, _ := testutil.NewTestServer(t, adminKey)
	router := srv.Router()

	body := `{
		"id": "office",
		"name": "Office network",
		"enabled": true,
		"priority": 10,
		"when": {"dnsResolve": {"hostname": "intranet.corp.example", "expectIPCIDR": ["10.0.0.0/8"]}},
		"then": {"setActiveProfile": "corp-proxy"}
	}`
	rr := (&testutil.HTTPRequest{Method: "POST", Path: "/v1/rules", Body: body, Headers: authHeader()}).Do(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = (&testutil.HTTPRequest{Method: "GET", Path: "/v1/rules/office"}).Do(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	var got rules.Rule
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.When.DNSResolve == nil || got.When.DNSResolve.Hostname != "intranet.corp.example" {
		t.Errorf("rule round-trip lost trigger: %+v", got.When)
	}

	rr = (&testutil.HTTPRequest{Method: "GET", Path: "/v1/rules"}).Do(t, router)
	var list []rules.Rule
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list len = %d, want 1", len(list))
	}

	rr = (&testutil.HTTPRequest{Method: "DELETE", Path: "/v1/rules/office", Headers: authHeader()}).Do(t, router)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = (&testutil.HTTPRequest{Method: "GET", Path: "/v1/rules/office"}).Do(t, router)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rr.Code)
	}
}

func TestRuleValidationRejected(t *testing.T) {
	srv, _ := testutil.NewTestServer(t, adminKey)
	router := srv.Router()

	// Reachability URL must be http or https.
	body := `{
		"id": "bad",
		"name": "Bad rule",
		"when": {"reachability": {"url": "ftp://example.com"}},
		"then": {"setActiveProfile": "direct"}
	}`
	rr := (&testutil.HTTPRequest{Method: "POST", Path: "/v1/rules", Body: body, Headers: authHeader()}).Do(t, router)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rr.Code, rr.Body.String())
	}
}

func TestProfileCRUD(t *testing.T) {
	srv, _ := testutil.NewTestServer(t, adminKey)
	router := srv.Router()

	body := `{"id": "corp-proxy", "name": "Corporate proxy", "kind": "manual", "host": "proxy.corp.example", "port": 3128}`
	rr := (&testutil.HTTPRequest{Method: "POST", Path: "/v1/profiles", Body: body, Headers: authHeader()}).Do(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
	}

	// Manual profile without a port is invalid.
	bad := `{"id": "p2", "name": "No port", "kind": "manual", "host": "h"}`
	rr = (&testutil.HTTPRequest{Method: "POST", Path: "/v1/profiles", Body: bad, Headers: authHeader()}).Do(t, router)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid profile status = %d, want 400", rr.Code)
	}

	rr = (&testutil.HTTPRequest{Method: "GET", Path: "/v1/profiles/corp-proxy"}).Do(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	var p proxy.Profile
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Port != 3128 {
		t.Errorf("port = %d, want 3128", p.Port)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	srv, st := testutil.NewTestServer(t, adminKey)
	router := srv.Router()
	ctx := context.Background()

	if err := st.UpsertProfile(ctx, proxy.Profile{ID: "direct", Name: "Direct", Kind: proxy.KindDirect}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertRule(ctx, rules.Rule{
		ID:      "always",
		Name:    "Always",
		Enabled: true,
		When:    rules.TriggerSet{ManualFlag: &rules.ManualFlagTrigger{Value: true}},
		Then:    rules.Action{SetActiveProfile: "direct"},
	}); err != nil {
		t.Fatal(err)
	}

	rr := (&testutil.HTTPRequest{Method: "POST", Path: "/v1/evaluate", Headers: authHeader()}).Do(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "Matched" {
		t.Errorf("status = %q, want Matched", resp.Status)
	}

	rr = (&testutil.HTTPRequest{Method: "GET", Path: "/v1/state"}).Do(t, router)
	var state struct {
		ActiveProfileID string `json:"activeProfileId"`
		LastStatus      string `json:"lastStatus"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ActiveProfileID != "direct" || state.LastStatus != "Matched" {
		t.Errorf("state = %+v", state)
	}
}

func TestAutoDisableSkipsEvaluation(t *testing.T) {
	srv, _ := testutil.NewTestServer(t, adminKey)
	router := srv.Router()

	rr := (&testutil.HTTPRequest{Method: "POST", Path: "/v1/auto", Body: `{"enabled":false}`, Headers: authHeader()}).Do(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("auto off status = %d", rr.Code)
	}

	rr = (&testutil.HTTPRequest{Method: "POST", Path: "/v1/evaluate", Headers: authHeader()}).Do(t, router)
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "Skipped" {
		t.Errorf("status = %q, want Skipped", resp.Status)
	}

	// Forced evaluation runs even with autoMode off.
	rr = (&testutil.HTTPRequest{Method: "POST", Path: "/v1/evaluate", Body: `{"force":true}`, Headers: authHeader()}).Do(t, router)
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode forced: %v", err)
	}
	if resp.Status == "Skipped" {
		t.Error("forced evaluation must not be skipped")
	}
}

func TestRuleTestEndpoint(t *testing.T) {
	srv, _ := testutil.NewTestServer(t, adminKey)
	router := srv.Router()

	body := `{
		"name": "Ad hoc",
		"when": {"manualFlag": {"value": true}},
		"then": {"setActiveProfile": "direct"}
	}`
	rr := (&testutil.HTTPRequest{Method: "POST", Path: "/v1/rules/test", Body: body, Headers: authHeader()}).Do(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("ad-hoc rule should match with stub probes")
	}
}
