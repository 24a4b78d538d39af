package api_test

import (
	"context"
	"errors"
	"testing"

	"beacon/internal/api"
	"beacon/internal/profile"
	"beacon/internal/testsupport"
)

func newTestService(t *testing.T) (*api.Service, *profile.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return api.NewService(cfg, store, nil), store
}

func strPtr(s string) *string   { return &s }
func intPtr(v int) *int         { return &v }
func f64Ptr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool      { return &v }

func fullRequest() api.FingerprintRequest {
	return api.FingerprintRequest{
		FingerprintID:       "fp-full",
		DeviceID:            "dev-full",
		AudioSum:            f64Ptr(124.0434),
		Timezone:            strPtr("Europe/Berlin"),
		TimezoneOffset:      intPtr(-120),
		Languages:           []any{"de-DE", "en-US"},
		ScreenWidth:         intPtr(2560),
		ScreenHeight:        intPtr(1440),
		HardwareConcurrency: intPtr(8),
		DeviceMemory:        f64Ptr(16),
		Platform:            strPtr("Linux x86_64"),
		TouchSupport:        boolPtr(false),
		ColorDepth:          intPtr(24),
		PointerType:         strPtr("mouse"),
		WheelDeltaY:         f64Ptr(120),
	}
}

func TestSubmitRequiresFingerprintID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), api.FingerprintRequest{}, "203.0.113.7:4242")
	var verr *api.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitNewVisitorMintsID(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Submit(context.Background(), fullRequest(), "203.0.113.7:4242")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.VisitorID == "" {
		t.Fatal("expected a minted visitor id")
	}
	if resp.MatchType != nil {
		t.Fatalf("match type = %q, want null", *resp.MatchType)
	}
	if resp.MatchedVisitorID != nil {
		t.Fatalf("matched visitor id = %q, want null", *resp.MatchedVisitorID)
	}
	if resp.ProfileID == 0 {
		t.Fatal("expected a persisted profile id")
	}
	if resp.HouseholdID == "" {
		t.Fatal("expected a derived household id")
	}
}

func TestSubmitSameDeviceAdoptsIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, fullRequest(), "203.0.113.7:4242")
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	// Same signals, new fingerprint hash: the matcher must recognize the
	// returning browser and hand back the same visitor id.
	again := fullRequest()
	again.FingerprintID = "fp-rotated"
	resp, err := svc.Submit(ctx, again, "203.0.113.7:4242")
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if resp.MatchType == nil || *resp.MatchType != api.MatchTypeSameDevice {
		t.Fatalf("match type = %v, want same-device", resp.MatchType)
	}
	if resp.VisitorID != first.VisitorID {
		t.Fatalf("visitor id %q, want adopted %q", resp.VisitorID, first.VisitorID)
	}
	if resp.MatchedVisitorID == nil || *resp.MatchedVisitorID != first.VisitorID {
		t.Fatalf("matched visitor id %v, want %q", resp.MatchedVisitorID, first.VisitorID)
	}
	if resp.Confidence < 0.70 {
		t.Fatalf("confidence = %v, want >= threshold", resp.Confidence)
	}
	if len(resp.MatchedSignals) == 0 {
		t.Fatal("expected matched signals in the response")
	}
}

func TestSubmitCrossDeviceMatchKeepsOwnIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// A phone in the household: shares subnet, timezone, languages, local
	// subnet, and recent activity, but no device-level signals.
	phone := api.FingerprintRequest{
		FingerprintID: "fp-phone",
		DeviceID:      "dev-phone",
		Timezone:      strPtr("Europe/Berlin"),
		Languages:     []any{"de-DE"},
		LocalSubnet:   strPtr("192.168.1"),
		Platform:      strPtr("iPhone"),
		TouchSupport:  boolPtr(true),
	}
	first, err := svc.Submit(ctx, phone, "203.0.113.7:1000")
	if err != nil {
		t.Fatalf("phone Submit: %v", err)
	}

	laptop := api.FingerprintRequest{
		FingerprintID: "fp-laptop",
		DeviceID:      "dev-laptop",
		Timezone:      strPtr("Europe/Berlin"),
		Languages:     []any{"de-DE"},
		LocalSubnet:   strPtr("192.168.1"),
		Platform:      strPtr("MacIntel"),
		TouchSupport:  boolPtr(false),
	}
	resp, err := svc.Submit(ctx, laptop, "203.0.113.7:2000")
	if err != nil {
		t.Fatalf("laptop Submit: %v", err)
	}
	if resp.MatchType == nil || *resp.MatchType != api.MatchTypeCrossDevice {
		t.Fatalf("match type = %v, want cross-device", resp.MatchType)
	}
	if resp.MatchedVisitorID == nil || *resp.MatchedVisitorID != first.VisitorID {
		t.Fatalf("matched visitor id %v, want %q", resp.MatchedVisitorID, first.VisitorID)
	}
	if resp.VisitorID == first.VisitorID {
		t.Fatal("cross-device match must not merge visitor identities")
	}
}

func TestSubmitDerivesSubnetFromRemoteAddr(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Submit(ctx, fullRequest(), "198.51.100.23:55555")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	stored, err := store.LatestByVisitor(ctx, resp.VisitorID)
	if err != nil {
		t.Fatalf("LatestByVisitor: %v", err)
	}
	if stored.IPSubnet == nil || *stored.IPSubnet != "198.51.100" {
		t.Fatalf("stored subnet = %v, want 198.51.100", stored.IPSubnet)
	}
}

func TestSubnetFromAddr(t *testing.T) {
	cases := []struct {
		addr string
		want string
	}{
		{"203.0.113.7:80", "203.0.113"},
		{"203.0.113.7", "203.0.113"},
		{"[2001:db8:1:2::3]:443", "2001:db8:1::/48"},
		{"not-an-address", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := api.SubnetFromAddr(tc.addr); got != tc.want {
			t.Errorf("SubnetFromAddr(%q) = %q, want %q", tc.addr, got, tc.want)
		}
	}
}

func TestPatchMouseDynamics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Submit(ctx, fullRequest(), "203.0.113.7:80")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	patch, err := svc.PatchMouse(ctx, api.MouseDynamicsRequest{
		VisitorID:   resp.VisitorID,
		WheelDeltaY: f64Ptr(100),
	})
	if err != nil {
		t.Fatalf("PatchMouse: %v", err)
	}
	if !patch.Updated {
		t.Fatal("expected patch to apply")
	}

	missing, err := svc.PatchMouse(ctx, api.MouseDynamicsRequest{VisitorID: "nobody"})
	if err != nil {
		t.Fatalf("PatchMouse unknown: %v", err)
	}
	if missing.Updated {
		t.Fatal("patch for unknown visitor should not apply")
	}
}

func TestTokenStoreAndLookup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// No token in the request: the service issues one.
	issued, err := svc.StoreToken(ctx, api.TokenRequest{VisitorID: "visitor-t"})
	if err != nil {
		t.Fatalf("StoreToken: %v", err)
	}
	if !issued.Stored || issued.Token == "" {
		t.Fatalf("issue = %+v, want stored with a minted token", issued)
	}
	resp, err := svc.LookupToken(ctx, issued.Token)
	if err != nil {
		t.Fatalf("LookupToken: %v", err)
	}
	if resp.VisitorID != "visitor-t" {
		t.Fatalf("visitor = %q, want visitor-t", resp.VisitorID)
	}

	// An explicit token rebinds rather than minting a new one.
	rebound, err := svc.StoreToken(ctx, api.TokenRequest{Token: issued.Token, VisitorID: "visitor-u"})
	if err != nil {
		t.Fatalf("StoreToken rebind: %v", err)
	}
	if rebound.Token != issued.Token {
		t.Fatalf("rebind token = %q, want %q", rebound.Token, issued.Token)
	}
	if resp, err = svc.LookupToken(ctx, issued.Token); err != nil || resp.VisitorID != "visitor-u" {
		t.Fatalf("rebound lookup = %+v err = %v, want visitor-u", resp, err)
	}

	if _, err := svc.StoreToken(ctx, api.TokenRequest{Token: "tok-orphan"}); err == nil {
		t.Fatal("expected validation error without visitorId")
	}

	unknown, err := svc.LookupToken(ctx, "missing")
	if err != nil {
		t.Fatalf("LookupToken unknown: %v", err)
	}
	if unknown.VisitorID != "" {
		t.Fatalf("unknown token resolved to %q", unknown.VisitorID)
	}
}

func TestDNSProbeHostsStableOrder(t *testing.T) {
	svc, _ := newTestService(t)

	first := svc.DNSProbeHosts()
	second := svc.DNSProbeHosts()
	if len(first.Hosts) == 0 {
		t.Fatal("expected probe hosts")
	}
	for idx := range first.Hosts {
		if first.Hosts[idx] != second.Hosts[idx] {
			t.Fatalf("host order changed at %d: %q vs %q", idx, first.Hosts[idx], second.Hosts[idx])
		}
	}
}

func TestPairingIssueAndConfirm(t *testing.T) {
	svc, _ := newTestService(t)

	code, err := svc.IssuePairingCode(api.PairingCodeRequest{VisitorID: "visitor-a"})
	if err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}
	if len(code.Code) != 6 {
		t.Fatalf("code = %q, want 6 digits", code.Code)
	}

	confirm, err := svc.ConfirmPairing(api.PairingConfirmRequest{VisitorID: "visitor-b", Code: code.Code})
	if err != nil {
		t.Fatalf("ConfirmPairing: %v", err)
	}
	if !confirm.Paired || confirm.PairedVisitorID != "visitor-a" {
		t.Fatalf("confirm = %+v", confirm)
	}

	// Codes are single use.
	again, err := svc.ConfirmPairing(api.PairingConfirmRequest{VisitorID: "visitor-c", Code: code.Code})
	if err != nil {
		t.Fatalf("ConfirmPairing reuse: %v", err)
	}
	if again.Paired {
		t.Fatal("reused code should not pair")
	}
}

func TestPairingRejectsSelfPair(t *testing.T) {
	svc, _ := newTestService(t)

	code, err := svc.IssuePairingCode(api.PairingCodeRequest{VisitorID: "visitor-a"})
	if err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}
	confirm, err := svc.ConfirmPairing(api.PairingConfirmRequest{VisitorID: "visitor-a", Code: code.Code})
	if err != nil {
		t.Fatalf("ConfirmPairing: %v", err)
	}
	if confirm.Paired {
		t.Fatal("a device must not pair with itself")
	}
}
