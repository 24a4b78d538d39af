package api

// FingerprintRequest is one visit submission. FingerprintID is the only
// required field; everything else is evidence that may be absent when a
// collection module failed on the client.
type FingerprintRequest struct {
	VisitorID     string `json:"visitorId,omitempty"`
	FingerprintID string `json:"fingerprintId"`
	DeviceID      string `json:"deviceId,omitempty"`
	BrowserID     string `json:"browserId,omitempty"`

	IPSubnet            *string  `json:"ipSubnet,omitempty"`
	AudioSum            *float64 `json:"audioSum,omitempty"`
	Timezone            *string  `json:"timezone,omitempty"`
	TimezoneOffset      *int     `json:"timezoneOffset,omitempty"`
	Languages           any      `json:"languages,omitempty"`
	ScreenWidth         *int     `json:"screenWidth,omitempty"`
	ScreenHeight        *int     `json:"screenHeight,omitempty"`
	HardwareConcurrency *int     `json:"hardwareConcurrency,omitempty"`
	DeviceMemory        *float64 `json:"deviceMemory,omitempty"`
	Platform            *string  `json:"platform,omitempty"`
	TouchSupport        *bool    `json:"touchSupport,omitempty"`
	ColorDepth          *int     `json:"colorDepth,omitempty"`
	PointerType         *string  `json:"pointerType,omitempty"`
	WheelDeltaY         *float64 `json:"wheelDeltaY,omitempty"`
	WheelDeltaMode      *int     `json:"wheelDeltaMode,omitempty"`

	LocalSubnet     *string  `json:"localSubnet,omitempty"`
	BatteryLevel    *float64 `json:"batteryLevel,omitempty"`
	BatteryCharging *bool    `json:"batteryCharging,omitempty"`
	LoginBitmask    *string  `json:"loginBitmask,omitempty"`
	LANTopology     *string  `json:"lanTopology,omitempty"`
}

// FingerprintResponse reports the resolved identity for a submission.
// MatchType and MatchedVisitorID are null when no stored profile matched.
type FingerprintResponse struct {
	VisitorID        string   `json:"visitorId"`
	ProfileID        int64    `json:"profileId"`
	MatchType        *string  `json:"matchType"`
	MatchedVisitorID *string  `json:"matchedVisitorId"`
	Confidence       float64  `json:"confidence"`
	MatchedSignals   []string `json:"matchedSignals,omitempty"`
	HouseholdID      string   `json:"householdId,omitempty"`
}

// Match type values in FingerprintResponse.
const (
	MatchTypeSameDevice  = "same-device"
	MatchTypeCrossDevice = "cross-device"
)

// MouseDynamicsRequest patches pointer-behavior evidence onto the latest
// profile of a visitor after the initial submission.
type MouseDynamicsRequest struct {
	VisitorID       string   `json:"visitorId"`
	PointerType     *string  `json:"pointerType,omitempty"`
	WheelDeltaY     *float64 `json:"wheelDeltaY,omitempty"`
	WheelDeltaMode  *int     `json:"wheelDeltaMode,omitempty"`
	SmoothScroll    *bool    `json:"smoothScroll,omitempty"`
	MovementMinStep *float64 `json:"movementMinStep,omitempty"`
}

// MouseDynamicsResponse reports whether the patch found a profile to update.
type MouseDynamicsResponse struct {
	Updated bool `json:"updated"`
}

// TokenHeader carries a previously issued identity token on GET requests.
const TokenHeader = "X-Identity-Token"

// TokenRequest binds an identity token to a visitor. Token is optional: when
// absent the server issues a fresh one.
type TokenRequest struct {
	Token     string `json:"token,omitempty"`
	VisitorID string `json:"visitorId"`
}

// TokenStoreResponse echoes the token the visitor was bound to.
type TokenStoreResponse struct {
	Stored bool   `json:"stored"`
	Token  string `json:"token"`
}

// TokenResponse resolves a token lookup.
type TokenResponse struct {
	Token     string `json:"token"`
	VisitorID string `json:"visitorId"`
}

// DNSProbeResponse lists the LAN hostnames the client probes to build its
// network-topology bit-vector. Order is significant: bit i of the vector
// reports host i.
type DNSProbeResponse struct {
	Hosts []string `json:"hosts"`
}

// PairingCodeRequest asks for a short-lived pairing code bound to a visitor.
type PairingCodeRequest struct {
	VisitorID string `json:"visitorId"`
}

// PairingCodeResponse carries the issued code and its lifetime in seconds.
type PairingCodeResponse struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expiresIn"`
}

// PairingConfirmRequest redeems a pairing code heard by another device.
type PairingConfirmRequest struct {
	VisitorID string `json:"visitorId"`
	Code      string `json:"code"`
}

// PairingConfirmResponse reports the visitor the code was issued to. The two
// visitors are evidence of co-located devices.
type PairingConfirmResponse struct {
	Paired          bool   `json:"paired"`
	PairedVisitorID string `json:"pairedVisitorId,omitempty"`
}

// StatusResponse summarizes daemon health for GET /api/status.
type StatusResponse struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	DatabasePath string `json:"databasePath"`
	LockFilePath string `json:"lockFilePath"`
	Profiles     int    `json:"profiles"`
	Visitors     int    `json:"visitors"`
	Households   int    `json:"households"`
	Tokens       int    `json:"tokens"`
}
