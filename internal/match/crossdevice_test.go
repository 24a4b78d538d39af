package match

import (
	"math"
	"testing"
	"time"
)

func householdSignals(visitorID string, lastActive time.Time) *Signals {
	return &Signals{
		VisitorID:    visitorID,
		HouseholdID:  strPtr("hh-1"),
		LocalSubnet:  strPtr("192.168.1.0"),
		IPSubnet:     strPtr("83.84.12.0"),
		Timezone:     strPtr("Europe/Amsterdam"),
		Languages:    []string{"nl-NL", "en-US"},
		LoginBitmask: strPtr("10110101"),
		LANTopology:  strPtr("11101000"),
		LastActive:   lastActive,
	}
}

func TestCrossDeviceWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, w := range CrossDeviceWeights() {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-3 {
		t.Fatalf("cross-device weights sum to %v, want 1.0", sum)
	}
}

func TestCrossMatchFullAgreementScoresOne(t *testing.T) {
	m := NewMatcher(DefaultPolicy())
	now := time.Now()
	outcome := m.CrossMatch(householdSignals("a", now), householdSignals("b", now), now)
	if math.Abs(outcome.Score-1.0) > 1e-3 {
		t.Fatalf("full household agreement scored %v, want 1.0 (matched %v)", outcome.Score, outcome.MatchedSignals)
	}
}

func TestTimeCorrelationWindows(t *testing.T) {
	m := NewMatcher(DefaultPolicy())
	now := time.Now()
	weight := CrossDeviceWeights()[SignalTimeCorrelation]

	cases := []struct {
		name   string
		age    time.Duration
		credit float64
	}{
		{"within 5 minutes", 4 * time.Minute, 1},
		{"within 30 minutes", 20 * time.Minute, 0.5},
		{"stale", 2 * time.Hour, 0},
	}
	for _, tc := range cases {
		incoming := &Signals{}
		stored := &Signals{LastActive: now.Add(-tc.age)}
		outcome := m.CrossMatch(incoming, stored, now)
		want := weight * tc.credit
		if math.Abs(outcome.Score-want) > 1e-9 {
			t.Fatalf("%s: score %v, want %v", tc.name, outcome.Score, want)
		}
	}
}

func TestLoginPatternThresholds(t *testing.T) {
	m := NewMatcher(DefaultPolicy())
	now := time.Now()
	weight := CrossDeviceWeights()[SignalLoginPattern]

	cases := []struct {
		name   string
		a, b   string
		credit float64
	}{
		{"all 8 match", "10110101", "10110101", 1},
		{"6 of 8 match", "10110101", "10110110", 1},
		{"5 of 8 match", "10110101", "10110010", 0.5},
		{"4 of 8 match", "10110101", "10111010", 0},
		{"length mismatch", "1011", "10110101", 0},
	}
	for _, tc := range cases {
		incoming := &Signals{LoginBitmask: &tc.a}
		stored := &Signals{LoginBitmask: &tc.b}
		outcome := m.CrossMatch(incoming, stored, now)
		want := weight * tc.credit
		if math.Abs(outcome.Score-want) > 1e-9 {
			t.Fatalf("%s: score %v, want %v", tc.name, outcome.Score, want)
		}
	}
}

func TestLoginPatternAbsentSide(t *testing.T) {
	m := NewMatcher(DefaultPolicy())
	now := time.Now()
	mask := "10110101"
	outcome := m.CrossMatch(&Signals{LoginBitmask: &mask}, &Signals{}, now)
	if outcome.Score != 0 {
		t.Fatalf("absent login evidence must contribute nothing, got %v", outcome.Score)
	}
}

func TestLANTopologySparseEvidenceIgnored(t *testing.T) {
	m := NewMatcher(DefaultPolicy())
	now := time.Now()

	// Only two responsive hosts on the incoming side.
	sparse := "11000000"
	dense := "11101000"
	outcome := m.CrossMatch(&Signals{LANTopology: &sparse}, &Signals{LANTopology: &dense}, now)
	if outcome.Score != 0 {
		t.Fatalf("sparse topology must contribute nothing, got %v", outcome.Score)
	}
}

func TestLANTopologyTieredCredit(t *testing.T) {
	m := NewMatcher(DefaultPolicy())
	now := time.Now()
	weight := CrossDeviceWeights()[SignalLANTopology]

	base := "11101010" // four responsive hosts
	cases := []struct {
		name   string
		other  string
		credit float64
	}{
		{"identical", "11101010", 1},
		{"7 of 8 positions", "11101011", 0.5},
		{"2 of 8 positions", "11010101", 0},
	}
	for _, tc := range cases {
		outcome := m.CrossMatch(&Signals{LANTopology: &base}, &Signals{LANTopology: &tc.other}, now)
		want := weight * tc.credit
		if math.Abs(outcome.Score-want) > 1e-9 {
			t.Fatalf("%s: score %v, want %v", tc.name, outcome.Score, want)
		}
	}
}

func TestFindBestCrossDeviceMatchNeverSelfMatches(t *testing.T) {
	m := NewMatcher(DefaultPolicy())
	now := time.Now()

	incoming := householdSignals("v1", now)
	self := householdSignals("v1", now)
	other := householdSignals("v2", now)

	best := m.FindBestCrossDeviceMatch(incoming, []*Signals{self, other}, now)
	if best == nil {
		t.Fatal("expected a cross-device match")
	}
	if best.Candidate.VisitorID == incoming.VisitorID {
		t.Fatal("cross-device matcher returned the incoming visitor itself")
	}
}

func TestFindBestCrossDeviceMatchThreshold(t *testing.T) {
	m := NewMatcher(DefaultPolicy())
	now := time.Now()

	incoming := householdSignals("v1", now)
	weak := &Signals{VisitorID: "v2", Timezone: strPtr("Europe/Amsterdam")}

	if best := m.FindBestCrossDeviceMatch(incoming, []*Signals{weak}, now); best != nil {
		t.Fatalf("weak candidate below threshold should yield nil, got %+v", best)
	}
}
