package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"beacon/internal/config"
)

// Store manages profile persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the profile database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "beacon.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Insert appends a new profile row. CreatedAt and LastActive are stamped here;
// the returned profile carries the assigned row id.
func (s *Store) Insert(ctx context.Context, p *Profile) (*Profile, error) {
	if p == nil {
		return nil, errors.New("profile is nil")
	}
	if p.VisitorID == "" {
		return nil, errors.New("profile requires a visitor id")
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.LastActive = now
	timestamp := now.Format(time.RFC3339Nano)

	languages, err := encodeLanguages(p.Languages)
	if err != nil {
		return nil, fmt.Errorf("encode languages: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO profiles (
            visitor_id, fingerprint_id, device_id, browser_id, ip_subnet,
            audio_sum, timezone, timezone_offset, languages, screen_width,
            screen_height, hardware_concurrency, device_memory, platform,
            touch_support, color_depth, pointer_type, wheel_delta_y,
            wheel_delta_mode, smooth_scroll, movement_min_step, household_id,
            local_subnet, battery_level, battery_charging, login_bitmask,
            lan_topology, created_at, last_active
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.VisitorID,
		p.FingerprintID,
		p.DeviceID,
		p.BrowserID,
		p.IPSubnet,
		p.AudioSum,
		p.Timezone,
		p.TimezoneOffset,
		languages,
		p.ScreenWidth,
		p.ScreenHeight,
		p.HardwareConcurrency,
		p.DeviceMemory,
		p.Platform,
		nullableBool(p.TouchSupport),
		p.ColorDepth,
		p.PointerType,
		p.WheelDeltaY,
		p.WheelDeltaMode,
		nullableBool(p.SmoothScroll),
		p.MovementMinStep,
		p.HouseholdID,
		p.LocalSubnet,
		p.BatteryLevel,
		nullableBool(p.BatteryCharging),
		p.LoginBitmask,
		p.LANTopology,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	return p, nil
}

// GetByID fetches a profile row by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// LatestByVisitor returns the most recently inserted row for a visitor.
func (s *Store) LatestByVisitor(ctx context.Context, visitorID string) (*Profile, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE visitor_id = ? ORDER BY id DESC LIMIT 1`,
		visitorID,
	)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest by visitor: %w", err)
	}
	return p, nil
}

// ListByVisitor returns every row for a visitor, oldest first.
func (s *Store) ListByVisitor(ctx context.Context, visitorID string) ([]*Profile, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE visitor_id = ? ORDER BY id`,
		visitorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list by visitor: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// TouchLastActive bumps the last-active timestamp of a row. Idempotent with
// respect to "most recent wins": reordered submissions cannot regress it.
func (s *Store) TouchLastActive(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE profiles SET last_active = ? WHERE id = ? AND last_active < ?`,
		now, id, now,
	)
	if err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}
	return nil
}

// PatchMouseDynamics updates the pointer-behavior fields on the latest row
// for a visitor. These are the only comparable fields patched after insert.
func (s *Store) PatchMouseDynamics(ctx context.Context, visitorID string, dyn MouseDynamics) (bool, error) {
	latest, err := s.LatestByVisitor(ctx, visitorID)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return false, nil
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE profiles
         SET pointer_type = COALESCE(?, pointer_type),
             wheel_delta_y = COALESCE(?, wheel_delta_y),
             wheel_delta_mode = COALESCE(?, wheel_delta_mode),
             smooth_scroll = COALESCE(?, smooth_scroll),
             movement_min_step = COALESCE(?, movement_min_step),
             last_active = ?
         WHERE id = ?`,
		dyn.PointerType,
		dyn.WheelDeltaY,
		dyn.WheelDeltaMode,
		nullableBool(dyn.SmoothScroll),
		dyn.MovementMinStep,
		time.Now().UTC().Format(time.RFC3339Nano),
		latest.ID,
	)
	if err != nil {
		return false, fmt.Errorf("patch mouse dynamics: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const profileColumns = "id, visitor_id, fingerprint_id, device_id, browser_id, ip_subnet, audio_sum, timezone, timezone_offset, languages, screen_width, screen_height, hardware_concurrency, device_memory, platform, touch_support, color_depth, pointer_type, wheel_delta_y, wheel_delta_mode, smooth_scroll, movement_min_step, household_id, local_subnet, battery_level, battery_charging, login_bitmask, lan_topology, created_at, last_active"

func scanProfile(scanner interface{ Scan(dest ...any) error }) (*Profile, error) {
	var (
		id              int64
		visitorID       string
		fingerprintID   sql.NullString
		deviceID        sql.NullString
		browserID       sql.NullString
		ipSubnet        sql.NullString
		audioSum        sql.NullFloat64
		timezone        sql.NullString
		timezoneOffset  sql.NullInt64
		languagesRaw    sql.NullString
		screenWidth     sql.NullInt64
		screenHeight    sql.NullInt64
		concurrency     sql.NullInt64
		deviceMemory    sql.NullFloat64
		platform        sql.NullString
		touchSupport    sql.NullInt64
		colorDepth      sql.NullInt64
		pointerType     sql.NullString
		wheelDeltaY     sql.NullFloat64
		wheelDeltaMode  sql.NullInt64
		smoothScroll    sql.NullInt64
		movementMinStep sql.NullFloat64
		householdID     sql.NullString
		localSubnet     sql.NullString
		batteryLevel    sql.NullFloat64
		batteryCharging sql.NullInt64
		loginBitmask    sql.NullString
		lanTopology     sql.NullString
		createdRaw      string
		lastActiveRaw   string
	)

	if err := scanner.Scan(
		&id,
		&visitorID,
		&fingerprintID,
		&deviceID,
		&browserID,
		&ipSubnet,
		&audioSum,
		&timezone,
		&timezoneOffset,
		&languagesRaw,
		&screenWidth,
		&screenHeight,
		&concurrency,
		&deviceMemory,
		&platform,
		&touchSupport,
		&colorDepth,
		&pointerType,
		&wheelDeltaY,
		&wheelDeltaMode,
		&smoothScroll,
		&movementMinStep,
		&householdID,
		&localSubnet,
		&batteryLevel,
		&batteryCharging,
		&loginBitmask,
		&lanTopology,
		&createdRaw,
		&lastActiveRaw,
	); err != nil {
		return nil, err
	}

	p := &Profile{
		ID:                  id,
		VisitorID:           visitorID,
		FingerprintID:       stringPtr(fingerprintID),
		DeviceID:            stringPtr(deviceID),
		BrowserID:           stringPtr(browserID),
		IPSubnet:            stringPtr(ipSubnet),
		AudioSum:            floatPtr(audioSum),
		Timezone:            stringPtr(timezone),
		TimezoneOffset:      intPtr(timezoneOffset),
		ScreenWidth:         intPtr(screenWidth),
		ScreenHeight:        intPtr(screenHeight),
		HardwareConcurrency: intPtr(concurrency),
		DeviceMemory:        floatPtr(deviceMemory),
		Platform:            stringPtr(platform),
		TouchSupport:        boolPtr(touchSupport),
		ColorDepth:          intPtr(colorDepth),
		PointerType:         stringPtr(pointerType),
		WheelDeltaY:         floatPtr(wheelDeltaY),
		WheelDeltaMode:      intPtr(wheelDeltaMode),
		SmoothScroll:        boolPtr(smoothScroll),
		MovementMinStep:     floatPtr(movementMinStep),
		HouseholdID:         stringPtr(householdID),
		LocalSubnet:         stringPtr(localSubnet),
		BatteryLevel:        floatPtr(batteryLevel),
		BatteryCharging:     boolPtr(batteryCharging),
		LoginBitmask:        stringPtr(loginBitmask),
		LANTopology:         stringPtr(lanTopology),
	}

	if languagesRaw.Valid && languagesRaw.String != "" {
		if err := json.Unmarshal([]byte(languagesRaw.String), &p.Languages); err != nil {
			return nil, fmt.Errorf("decode languages: %w", err)
		}
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		p.CreatedAt = created
	}
	if lastActive, err := time.Parse(time.RFC3339Nano, lastActiveRaw); err == nil {
		p.LastActive = lastActive
	}
	return p, nil
}

func collectProfiles(rows *sql.Rows) ([]*Profile, error) {
	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func encodeLanguages(languages []string) (any, error) {
	if len(languages) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(languages)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableBool(value *bool) any {
	if value == nil {
		return nil
	}
	if *value {
		return 1
	}
	return 0
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func boolPtr(v sql.NullInt64) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Int64 != 0
	return &b
}
