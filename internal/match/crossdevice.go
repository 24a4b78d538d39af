package match

import "time"

// Cross-device signal names.
const (
	SignalHousehold       = "household"
	SignalLocalSubnet     = "localSubnet"
	SignalTimeCorrelation = "timeCorrelation"
	SignalLoginPattern    = "loginPattern"
	SignalLANTopology     = "lanTopology"
)

type crossComparator struct {
	name   string
	weight float64
	// credit returns the fraction of the weight earned: 1, 0.5, or 0.
	credit func(p Policy, in, stored *Signals, now time.Time) float64
}

// crossDeviceComparators is the household-level weight table. Weights sum to
// exactly 1.0. These signals are individually weak; the matcher relies on
// their combination.
var crossDeviceComparators = []crossComparator{
	{SignalHousehold, 0.22, func(_ Policy, in, st *Signals, _ time.Time) float64 {
		return fullOrNothing(eqString(in.HouseholdID, st.HouseholdID))
	}},
	{SignalLocalSubnet, 0.16, func(_ Policy, in, st *Signals, _ time.Time) float64 {
		return fullOrNothing(eqString(in.LocalSubnet, st.LocalSubnet))
	}},
	{SignalIPSubnet, 0.12, func(_ Policy, in, st *Signals, _ time.Time) float64 {
		return fullOrNothing(eqString(in.IPSubnet, st.IPSubnet))
	}},
	{SignalTimeCorrelation, 0.12, timeCorrelationCredit},
	{SignalLoginPattern, 0.12, loginPatternCredit},
	{SignalLANTopology, 0.10, lanTopologyCredit},
	{SignalTimezone, 0.08, func(_ Policy, in, st *Signals, _ time.Time) float64 {
		return fullOrNothing(eqString(in.Timezone, st.Timezone))
	}},
	{SignalLanguages, 0.08, func(_ Policy, in, st *Signals, _ time.Time) float64 {
		return fullOrNothing(languagesEqual(in.Languages, st.Languages))
	}},
}

// CrossDeviceWeights returns the household-level weight table keyed by signal name.
func CrossDeviceWeights() map[string]float64 {
	out := make(map[string]float64, len(crossDeviceComparators))
	for _, c := range crossDeviceComparators {
		out[c.name] = c.weight
	}
	return out
}

// CrossMatch scores household-level evidence between the incoming visit and a
// stored candidate. now anchors the time-correlation bonus.
func (m *Matcher) CrossMatch(incoming, stored *Signals, now time.Time) Outcome {
	var out Outcome
	if incoming == nil || stored == nil {
		return out
	}
	for _, c := range crossDeviceComparators {
		credit := c.credit(m.policy, incoming, stored, now)
		if credit <= 0 {
			continue
		}
		out.Score += c.weight * credit
		out.MatchedSignals = append(out.MatchedSignals, c.name)
	}
	return out
}

// FindBestCrossDeviceMatch applies the same strict-improvement scan as
// FindBestMatch with the lower cross-device threshold. Candidates sharing the
// incoming visitor identifier are skipped: a device never cross-matches itself.
func (m *Matcher) FindBestCrossDeviceMatch(incoming *Signals, candidates []*Signals, now time.Time) *Result {
	threshold := m.policy.CrossDeviceThreshold
	var best *Result
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if incoming.VisitorID != "" && candidate.VisitorID == incoming.VisitorID {
			continue
		}
		outcome := m.CrossMatch(incoming, candidate, now)
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

// timeCorrelationCredit grants full credit when the candidate was active
// within the short window of now, half credit within the long window.
func timeCorrelationCredit(p Policy, _, stored *Signals, now time.Time) float64 {
	if stored.LastActive.IsZero() {
		return 0
	}
	gap := now.Sub(stored.LastActive)
	if gap < 0 {
		gap = -gap
	}
	switch {
	case gap <= time.Duration(p.TimeCorrelationFullWindowSecs)*time.Second:
		return 1
	case gap <= time.Duration(p.TimeCorrelationHalfWindowSecs)*time.Second:
		return 0.5
	default:
		return 0
	}
}

// loginPatternCredit compares per-service login bit-vectors by matching-bit
// count. Absent evidence on either side contributes nothing.
func loginPatternCredit(p Policy, in, stored *Signals, _ time.Time) float64 {
	if in.LoginBitmask == nil || stored.LoginBitmask == nil {
		return 0
	}
	matched := matchingBits(*in.LoginBitmask, *stored.LoginBitmask)
	switch {
	case matched < 0:
		return 0
	case matched >= p.LoginFullCreditBits:
		return 1
	case matched >= p.LoginHalfCreditBits:
		return 0.5
	default:
		return 0
	}
}

// lanTopologyCredit compares per-host responsiveness bit-vectors. Sparse
// evidence (fewer than the minimum responsive hosts on either side) is not
// trusted and contributes nothing.
func lanTopologyCredit(p Policy, in, stored *Signals, _ time.Time) float64 {
	if in.LANTopology == nil || stored.LANTopology == nil {
		return 0
	}
	a, b := *in.LANTopology, *stored.LANTopology
	if responsiveHosts(a) < p.TopologyMinResponsiveHosts || responsiveHosts(b) < p.TopologyMinResponsiveHosts {
		return 0
	}
	matched := matchingBits(a, b)
	if matched < 0 {
		return 0
	}
	similarity := float64(matched) / float64(len(a))
	switch {
	case similarity >= p.TopologyFullCreditSimilarity:
		return 1
	case similarity >= p.TopologyHalfCreditSimilarity:
		return 0.5
	default:
		return 0
	}
}

func fullOrNothing(matched bool) float64 {
	if matched {
		return 1
	}
	return 0
}
