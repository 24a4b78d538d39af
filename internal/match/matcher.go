package match

import "math"

// Signal names reported in match outcomes.
const (
	SignalDeviceID       = "deviceId"
	SignalIPSubnet       = "ipSubnet"
	SignalAudio          = "audio"
	SignalScreen         = "screen"
	SignalTimezone       = "timezone"
	SignalTimezoneOffset = "timezoneOffset"
	SignalLanguages      = "languages"
	SignalConcurrency    = "hardwareConcurrency"
	SignalDeviceMemory   = "deviceMemory"
	SignalPlatform       = "platform"
	SignalTouchSupport   = "touchSupport"
	SignalColorDepth     = "colorDepth"
	SignalPointerType    = "pointerType"
	SignalWheelDelta     = "wheelDelta"
)

// Outcome is the result of scoring one incoming visit against one stored profile.
type Outcome struct {
	Score          float64
	MatchedSignals []string
}

// Result pairs a winning candidate with its outcome.
type Result struct {
	Candidate *Signals
	Outcome   Outcome
}

type comparator struct {
	name    string
	weight  float64
	matches func(p Policy, in, stored *Signals) bool
}

// sameDeviceComparators is the fixed weight table for the same-device matcher.
// The weights sum to exactly 1.0; a field contributes its full weight or nothing.
var sameDeviceComparators = []comparator{
	{SignalDeviceID, 0.18, func(_ Policy, in, st *Signals) bool {
		return eqString(in.DeviceID, st.DeviceID)
	}},
	{SignalAudio, 0.12, func(p Policy, in, st *Signals) bool {
		return fuzzyEqual(in.AudioSum, st.AudioSum, p.AudioTolerance)
	}},
	{SignalIPSubnet, 0.10, func(_ Policy, in, st *Signals) bool {
		return eqString(in.IPSubnet, st.IPSubnet)
	}},
	// Screen requires both dimensions: a single shared dimension is cheap
	// and must contribute nothing.
	{SignalScreen, 0.10, func(_ Policy, in, st *Signals) bool {
		return eqInt(in.ScreenWidth, st.ScreenWidth) && eqInt(in.ScreenHeight, st.ScreenHeight)
	}},
	{SignalLanguages, 0.08, func(_ Policy, in, st *Signals) bool {
		return languagesEqual(in.Languages, st.Languages)
	}},
	{SignalTimezone, 0.06, func(_ Policy, in, st *Signals) bool {
		return eqString(in.Timezone, st.Timezone)
	}},
	{SignalConcurrency, 0.06, func(_ Policy, in, st *Signals) bool {
		return eqInt(in.HardwareConcurrency, st.HardwareConcurrency)
	}},
	{SignalDeviceMemory, 0.06, func(_ Policy, in, st *Signals) bool {
		return eqFloat(in.DeviceMemory, st.DeviceMemory)
	}},
	{SignalPlatform, 0.06, func(_ Policy, in, st *Signals) bool {
		return eqString(in.Platform, st.Platform)
	}},
	{SignalWheelDelta, 0.05, func(p Policy, in, st *Signals) bool {
		return fuzzyEqual(in.WheelDeltaY, st.WheelDeltaY, p.WheelTolerance)
	}},
	{SignalTimezoneOffset, 0.04, func(_ Policy, in, st *Signals) bool {
		return eqInt(in.TimezoneOffset, st.TimezoneOffset)
	}},
	{SignalTouchSupport, 0.03, func(_ Policy, in, st *Signals) bool {
		return eqBool(in.TouchSupport, st.TouchSupport)
	}},
	{SignalColorDepth, 0.03, func(_ Policy, in, st *Signals) bool {
		return eqInt(in.ColorDepth, st.ColorDepth)
	}},
	{SignalPointerType, 0.03, func(_ Policy, in, st *Signals) bool {
		return eqString(in.PointerType, st.PointerType)
	}},
}

// Matcher scores incoming visits against stored profiles.
type Matcher struct {
	policy Policy
}

// NewMatcher constructs a matcher with the given policy (zero fields fall back
// to defaults).
func NewMatcher(policy Policy) *Matcher {
	return &Matcher{policy: policy.normalized()}
}

// Weights returns the same-device weight table keyed by signal name.
func Weights() map[string]float64 {
	out := make(map[string]float64, len(sameDeviceComparators))
	for _, c := range sameDeviceComparators {
		out[c.name] = c.weight
	}
	return out
}

// Match scores one incoming visit against one stored candidate. Each field
// contributes its weight only when both sides are non-nil and the comparator
// accepts the pair.
func (m *Matcher) Match(incoming, stored *Signals) Outcome {
	var out Outcome
	if incoming == nil || stored == nil {
		return out
	}
	for _, c := range sameDeviceComparators {
		if c.matches(m.policy, incoming, stored) {
			out.Score += c.weight
			out.MatchedSignals = append(out.MatchedSignals, c.name)
		}
	}
	return out
}

// FindBestMatch scans candidates in order and keeps the first whose score is
// both strictly higher than the current best and at or above the threshold.
// Equal top scores therefore favor earlier candidates; this order-dependent
// tie-break is intentional and relied upon by callers. Returns nil when no
// candidate qualifies.
func (m *Matcher) FindBestMatch(incoming *Signals, candidates []*Signals) *Result {
	threshold := m.policy.SameDeviceThreshold
	var best *Result
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		outcome := m.Match(incoming, candidate)
		if outcome.Score < threshold {
			continue
		}
		if best != nil && outcome.Score <= best.Outcome.Score {
			continue
		}
		best = &Result{Candidate: candidate, Outcome: outcome}
	}
	return best
}

func eqString(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func eqInt(a, b *int) bool {
	return a != nil && b != nil && *a == *b
}

func eqFloat(a, b *float64) bool {
	return a != nil && b != nil && *a == *b
}

func eqBool(a, b *bool) bool {
	return a != nil && b != nil && *a == *b
}

// fuzzyEqual accepts the pair when the absolute difference is within the
// relative tolerance of the stored value, boundary inclusive.
func fuzzyEqual(in, stored *float64, tolerance float64) bool {
	if in == nil || stored == nil {
		return false
	}
	return math.Abs(*in-*stored) <= tolerance*math.Abs(*stored)
}
