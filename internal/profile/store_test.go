package profile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"beacon/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func str(s string) *string { return &s }
func i(v int) *int         { return &v }
func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }

func sampleProfile(visitorID string) *Profile {
	return &Profile{
		VisitorID:           visitorID,
		FingerprintID:       str("fp-" + visitorID),
		DeviceID:            str("dev-" + visitorID),
		BrowserID:           str("br-" + visitorID),
		IPSubnet:            str("203.0.113"),
		AudioSum:            f(124.0434),
		Timezone:            str("Europe/Berlin"),
		TimezoneOffset:      i(-120),
		Languages:           []string{"de-DE", "en-US"},
		ScreenWidth:         i(2560),
		ScreenHeight:        i(1440),
		HardwareConcurrency: i(8),
		DeviceMemory:        f(16),
		Platform:            str("Linux x86_64"),
		TouchSupport:        b(false),
		ColorDepth:          i(24),
		PointerType:         str("mouse"),
		WheelDeltaY:         f(120),
	}
}

func TestInsertAndFetchRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, sampleProfile("visitor-a"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if inserted.ID == 0 {
		t.Fatal("expected assigned row id")
	}

	got, err := store.LatestByVisitor(ctx, "visitor-a")
	if err != nil {
		t.Fatalf("LatestByVisitor: %v", err)
	}
	if got == nil {
		t.Fatal("expected a row")
	}
	if got.ID != inserted.ID {
		t.Fatalf("row id = %d, want %d", got.ID, inserted.ID)
	}
	if got.FingerprintID == nil || *got.FingerprintID != "fp-visitor-a" {
		t.Fatalf("fingerprint id = %v", got.FingerprintID)
	}
	if got.AudioSum == nil || *got.AudioSum != 124.0434 {
		t.Fatalf("audio sum = %v", got.AudioSum)
	}
	if got.TimezoneOffset == nil || *got.TimezoneOffset != -120 {
		t.Fatalf("timezone offset = %v", got.TimezoneOffset)
	}
	if len(got.Languages) != 2 || got.Languages[0] != "de-DE" || got.Languages[1] != "en-US" {
		t.Fatalf("languages = %v", got.Languages)
	}
	if got.TouchSupport == nil || *got.TouchSupport {
		t.Fatalf("touch support = %v", got.TouchSupport)
	}
	if got.CreatedAt.IsZero() || got.LastActive.IsZero() {
		t.Fatal("expected stamped timestamps")
	}
}

func TestInsertRequiresVisitorID(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Insert(context.Background(), &Profile{}); err == nil {
		t.Fatal("expected error for missing visitor id")
	}
}

func TestNullableFieldsSurviveRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sparse := &Profile{VisitorID: "sparse", Timezone: str("UTC")}
	inserted, err := store.Insert(ctx, sparse)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.GetByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AudioSum != nil || got.DeviceID != nil || got.TouchSupport != nil {
		t.Fatalf("expected nil optional fields, got %+v", got)
	}
	if got.Languages != nil {
		t.Fatalf("expected nil languages, got %v", got.Languages)
	}
	if got.Timezone == nil || *got.Timezone != "UTC" {
		t.Fatalf("timezone = %v", got.Timezone)
	}
}

func TestListByVisitorOrdersOldestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Insert(ctx, sampleProfile("visitor-b")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	rows, err := store.ListByVisitor(ctx, "visitor-b")
	if err != nil {
		t.Fatalf("ListByVisitor: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	for idx := 1; idx < len(rows); idx++ {
		if rows[idx].ID <= rows[idx-1].ID {
			t.Fatalf("rows out of order: %d then %d", rows[idx-1].ID, rows[idx].ID)
		}
	}
}

func TestPatchMouseDynamics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Insert(ctx, sampleProfile("visitor-c")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	patched, err := store.PatchMouseDynamics(ctx, "visitor-c", MouseDynamics{
		WheelDeltaY:  f(100),
		SmoothScroll: b(true),
	})
	if err != nil {
		t.Fatalf("PatchMouseDynamics: %v", err)
	}
	if !patched {
		t.Fatal("expected patch to apply")
	}

	got, err := store.LatestByVisitor(ctx, "visitor-c")
	if err != nil {
		t.Fatalf("LatestByVisitor: %v", err)
	}
	if got.WheelDeltaY == nil || *got.WheelDeltaY != 100 {
		t.Fatalf("wheel delta = %v", got.WheelDeltaY)
	}
	if got.SmoothScroll == nil || !*got.SmoothScroll {
		t.Fatalf("smooth scroll = %v", got.SmoothScroll)
	}
	// COALESCE keeps fields the patch did not carry.
	if got.PointerType == nil || *got.PointerType != "mouse" {
		t.Fatalf("pointer type = %v", got.PointerType)
	}
}

func TestPatchMouseDynamicsUnknownVisitor(t *testing.T) {
	store := newTestStore(t)

	patched, err := store.PatchMouseDynamics(context.Background(), "nobody", MouseDynamics{WheelDeltaY: f(1)})
	if err != nil {
		t.Fatalf("PatchMouseDynamics: %v", err)
	}
	if patched {
		t.Fatal("expected no patch for unknown visitor")
	}
}

func TestTouchLastActiveNeverRegresses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, sampleProfile("visitor-touch"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339Nano)
	if _, err := store.db.Exec(`UPDATE profiles SET last_active = ? WHERE id = ?`, past, inserted.ID); err != nil {
		t.Fatalf("backdate last_active: %v", err)
	}
	if err := store.TouchLastActive(ctx, inserted.ID); err != nil {
		t.Fatalf("TouchLastActive: %v", err)
	}
	got, err := store.GetByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if time.Since(got.LastActive) > time.Minute {
		t.Fatalf("last_active not advanced: %v", got.LastActive)
	}

	// A touch older than the stored stamp must not regress it.
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano)
	if _, err := store.db.Exec(`UPDATE profiles SET last_active = ? WHERE id = ?`, future, inserted.ID); err != nil {
		t.Fatalf("forward-date last_active: %v", err)
	}
	if err := store.TouchLastActive(ctx, inserted.ID); err != nil {
		t.Fatalf("TouchLastActive: %v", err)
	}
	got, err = store.GetByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.LastActive.After(time.Now().Add(30 * time.Minute)) {
		t.Fatalf("last_active regressed from forward-dated stamp: %v", got.LastActive)
	}
}

func backdate(t *testing.T, store *Store, id int64, createdAt time.Time) {
	t.Helper()
	_, err := store.db.Exec(
		`UPDATE profiles SET created_at = ? WHERE id = ?`,
		createdAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		t.Fatalf("backdate row %d: %v", id, err)
	}
}

func TestPruneDuplicatesKeepsNewestOldRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		p, err := store.Insert(ctx, sampleProfile("visitor-d"))
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, p.ID)
	}
	// Two rows fall behind the dedup window, one stays fresh.
	backdate(t, store, ids[0], time.Now().Add(-10*24*time.Hour))
	backdate(t, store, ids[1], time.Now().Add(-9*24*time.Hour))

	removed, err := store.PruneDuplicates(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneDuplicates: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	rows, err := store.ListByVisitor(ctx, "visitor-d")
	if err != nil {
		t.Fatalf("ListByVisitor: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].ID != ids[1] {
		t.Fatalf("kept old row %d, want %d", rows[0].ID, ids[1])
	}
}

func TestPruneIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		p, err := store.Insert(ctx, sampleProfile("visitor-e"))
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		backdate(t, store, p.ID, time.Now().Add(-8*24*time.Hour))
	}
	if err := store.PutToken(ctx, "tok-e", "visitor-e"); err != nil {
		t.Fatalf("PutToken: %v", err)
	}

	first, err := store.PruneAll(ctx, 7*24*time.Hour, 90*24*time.Hour, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneAll: %v", err)
	}
	if first.DuplicateRows != 3 {
		t.Fatalf("first pass duplicates = %d, want 3", first.DuplicateRows)
	}

	second, err := store.PruneAll(ctx, 7*24*time.Hour, 90*24*time.Hour, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneAll second pass: %v", err)
	}
	if second.DuplicateRows != 0 || second.ExpiredRows != 0 || second.IdleTokens != 0 {
		t.Fatalf("second pass removed rows: %+v", second)
	}
}

func TestPruneExpiredRemovesAllOldRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old, err := store.Insert(ctx, sampleProfile("visitor-f"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	backdate(t, store, old.ID, time.Now().Add(-91*24*time.Hour))
	if _, err := store.Insert(ctx, sampleProfile("visitor-g")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	removed, err := store.PruneExpired(ctx, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got, err := store.LatestByVisitor(ctx, "visitor-f"); err != nil || got != nil {
		t.Fatalf("expected visitor-f gone, got %v err %v", got, err)
	}
}

func TestTokensRoundTripAndIdlePrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutToken(ctx, "tok-1", "visitor-h"); err != nil {
		t.Fatalf("PutToken: %v", err)
	}
	visitor, err := store.TokenVisitor(ctx, "tok-1")
	if err != nil {
		t.Fatalf("TokenVisitor: %v", err)
	}
	if visitor != "visitor-h" {
		t.Fatalf("visitor = %q, want visitor-h", visitor)
	}

	// Rebinding a token moves it to the new visitor.
	if err := store.PutToken(ctx, "tok-1", "visitor-i"); err != nil {
		t.Fatalf("PutToken rebind: %v", err)
	}
	visitor, err = store.TokenVisitor(ctx, "tok-1")
	if err != nil {
		t.Fatalf("TokenVisitor: %v", err)
	}
	if visitor != "visitor-i" {
		t.Fatalf("visitor = %q, want visitor-i", visitor)
	}

	// Unknown tokens resolve to empty without error.
	visitor, err = store.TokenVisitor(ctx, "missing")
	if err != nil {
		t.Fatalf("TokenVisitor unknown: %v", err)
	}
	if visitor != "" {
		t.Fatalf("visitor = %q, want empty", visitor)
	}

	stale := time.Now().Add(-91 * 24 * time.Hour).UTC().Format(time.RFC3339Nano)
	if _, err := store.db.Exec(`UPDATE identity_tokens SET updated_at = ? WHERE token = ?`, stale, "tok-1"); err != nil {
		t.Fatalf("backdate token: %v", err)
	}
	removed, err := store.PruneIdleTokens(ctx, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneIdleTokens: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Insert(ctx, sampleProfile("visitor-j")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := store.Insert(ctx, sampleProfile("visitor-j")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.PutToken(ctx, "tok-stats", "visitor-j"); err != nil {
		t.Fatalf("PutToken: %v", err)
	}

	health, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if health.Profiles != 2 || health.Visitors != 1 || health.Tokens != 1 {
		t.Fatalf("unexpected stats: %+v", health)
	}

	if err := store.CheckHealth(ctx); err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
}
