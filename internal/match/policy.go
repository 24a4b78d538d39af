package match

// Policy centralizes matcher thresholds and similarity rules.
type Policy struct {
	// SameDeviceThreshold is the minimum confidence for a same-device match.
	SameDeviceThreshold float64
	// CrossDeviceThreshold is the minimum confidence for a household-level
	// match; signals are individually weaker, so it sits below the
	// same-device threshold.
	CrossDeviceThreshold float64

	// AudioTolerance is the relative tolerance for the audio fingerprint
	// comparator (boundary inclusive).
	AudioTolerance float64
	// WheelTolerance is the relative tolerance for the wheel-delta comparator.
	WheelTolerance float64

	// TimeCorrelationFullWindow grants full time-correlation credit when the
	// candidate was last active within this many seconds of now; the half
	// window grants half credit.
	TimeCorrelationFullWindowSecs int
	TimeCorrelationHalfWindowSecs int

	// LoginFullCreditBits and LoginHalfCreditBits are matching-bit counts for
	// the eight-service login bitmask comparator.
	LoginFullCreditBits int
	LoginHalfCreditBits int

	// TopologyMinResponsiveHosts is the minimum responsive-host count on each
	// side before LAN-topology evidence is trusted at all.
	TopologyMinResponsiveHosts int
	// TopologyFullCreditSimilarity and TopologyHalfCreditSimilarity are the
	// matching-position fractions granting full and half credit. These are
	// tunable policy values, pending product-level confirmation.
	TopologyFullCreditSimilarity float64
	TopologyHalfCreditSimilarity float64
}

// DefaultPolicy returns the standard matcher thresholds.
func DefaultPolicy() Policy {
	return Policy{
		SameDeviceThreshold:           0.70,
		CrossDeviceThreshold:          0.55,
		AudioTolerance:                0.01,
		WheelTolerance:                0.05,
		TimeCorrelationFullWindowSecs: 5 * 60,
		TimeCorrelationHalfWindowSecs: 30 * 60,
		LoginFullCreditBits:           6,
		LoginHalfCreditBits:           5,
		TopologyMinResponsiveHosts:    3,
		TopologyFullCreditSimilarity:  0.90,
		TopologyHalfCreditSimilarity:  0.70,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.SameDeviceThreshold <= 0 || p.SameDeviceThreshold >= 1 {
		p.SameDeviceThreshold = d.SameDeviceThreshold
	}
	if p.CrossDeviceThreshold <= 0 || p.CrossDeviceThreshold >= 1 {
		p.CrossDeviceThreshold = d.CrossDeviceThreshold
	}
	if p.AudioTolerance <= 0 {
		p.AudioTolerance = d.AudioTolerance
	}
	if p.WheelTolerance <= 0 {
		p.WheelTolerance = d.WheelTolerance
	}
	if p.TimeCorrelationFullWindowSecs <= 0 {
		p.TimeCorrelationFullWindowSecs = d.TimeCorrelationFullWindowSecs
	}
	if p.TimeCorrelationHalfWindowSecs <= 0 {
		p.TimeCorrelationHalfWindowSecs = d.TimeCorrelationHalfWindowSecs
	}
	if p.LoginFullCreditBits <= 0 {
		p.LoginFullCreditBits = d.LoginFullCreditBits
	}
	if p.LoginHalfCreditBits <= 0 {
		p.LoginHalfCreditBits = d.LoginHalfCreditBits
	}
	if p.TopologyMinResponsiveHosts <= 0 {
		p.TopologyMinResponsiveHosts = d.TopologyMinResponsiveHosts
	}
	if p.TopologyFullCreditSimilarity <= 0 || p.TopologyFullCreditSimilarity > 1 {
		p.TopologyFullCreditSimilarity = d.TopologyFullCreditSimilarity
	}
	if p.TopologyHalfCreditSimilarity <= 0 || p.TopologyHalfCreditSimilarity > 1 {
		p.TopologyHalfCreditSimilarity = d.TopologyHalfCreditSimilarity
	}
	return p
}
