package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"beacon/internal/match"
)

// Profile is one persisted visit. Any comparable field may be nil when its
// source signal module failed or was unavailable; VisitorID is always set.
type Profile struct {
	ID        int64
	VisitorID string

	FingerprintID *string
	DeviceID      *string
	BrowserID     *string

	IPSubnet            *string
	AudioSum            *float64
	Timezone            *string
	TimezoneOffset      *int
	Languages           []string
	ScreenWidth         *int
	ScreenHeight        *int
	HardwareConcurrency *int
	DeviceMemory        *float64
	Platform            *string
	TouchSupport        *bool
	ColorDepth          *int
	PointerType         *string
	WheelDeltaY         *float64
	WheelDeltaMode      *int
	SmoothScroll        *bool
	MovementMinStep     *float64

	HouseholdID     *string
	LocalSubnet     *string
	BatteryLevel    *float64
	BatteryCharging *bool
	LoginBitmask    *string
	LANTopology     *string

	CreatedAt  time.Time
	LastActive time.Time
}

// Signals returns the comparable view of the profile for the matchers.
func (p *Profile) Signals() *match.Signals {
	if p == nil {
		return nil
	}
	return &match.Signals{
		VisitorID:           p.VisitorID,
		DeviceID:            p.DeviceID,
		FingerprintID:       p.FingerprintID,
		IPSubnet:            p.IPSubnet,
		AudioSum:            p.AudioSum,
		Timezone:            p.Timezone,
		TimezoneOffset:      p.TimezoneOffset,
		Languages:           p.Languages,
		ScreenWidth:         p.ScreenWidth,
		ScreenHeight:        p.ScreenHeight,
		HardwareConcurrency: p.HardwareConcurrency,
		DeviceMemory:        p.DeviceMemory,
		Platform:            p.Platform,
		TouchSupport:        p.TouchSupport,
		ColorDepth:          p.ColorDepth,
		PointerType:         p.PointerType,
		WheelDeltaY:         p.WheelDeltaY,
		HouseholdID:         p.HouseholdID,
		LocalSubnet:         p.LocalSubnet,
		LoginBitmask:        p.LoginBitmask,
		LANTopology:         p.LANTopology,
		LastActive:          p.LastActive,
	}
}

// Household is a soft aggregate over devices presumed to share a local
// network and user group. DeviceCount is recomputed from profile rows on
// every write touching the household.
type Household struct {
	ID          string
	FirstSeen   time.Time
	LastSeen    time.Time
	DeviceCount int
}

// MouseDynamics carries the post-hoc patchable pointer behavior fields.
type MouseDynamics struct {
	PointerType     *string
	WheelDeltaY     *float64
	WheelDeltaMode  *int
	SmoothScroll    *bool
	MovementMinStep *float64
}

// HealthSummary aggregates row counts for diagnostics.
type HealthSummary struct {
	Profiles   int
	Visitors   int
	Households int
	Tokens     int
}

// HouseholdID derives the stable household identifier from its defining
// signals. The digest is deterministic in ip subnet, timezone, and the
// ordered language list.
func HouseholdID(ipSubnet, timezone string, languages []string) string {
	var b strings.Builder
	b.WriteString(ipSubnet)
	b.WriteByte('|')
	b.WriteString(timezone)
	b.WriteByte('|')
	b.WriteString(strings.Join(languages, ","))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}
