package match

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Signals is the comparable view of one visit: either the incoming submission
// or a stored profile. Every field except VisitorID may be nil when its source
// module failed or was unavailable.
type Signals struct {
	VisitorID string

	DeviceID            *string
	FingerprintID       *string
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

	HouseholdID  *string
	LocalSubnet  *string
	LoginBitmask *string
	LANTopology  *string

	LastActive time.Time
}

// NormalizeLanguages converts a language list into its canonical ordered-list
// representation. The input may be a string slice, a JSON-encoded array, or a
// comma-separated string; order is preserved, tags are canonicalized via BCP 47
// parsing, and unparseable entries are kept trimmed as-is.
func NormalizeLanguages(value any) []string {
	var raw []string
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		if strings.HasPrefix(trimmed, "[") {
			var decoded []string
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				raw = decoded
			} else {
				raw = []string{trimmed}
			}
		} else {
			raw = strings.Split(trimmed, ",")
		}
	default:
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if tag, err := language.Parse(entry); err == nil {
			out = append(out, tag.String())
		} else {
			out = append(out, entry)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func languagesEqual(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// matchingBits counts positions holding the same bit in two equal-length
// bit-vector strings. Returns -1 when the vectors are not comparable.
func matchingBits(a, b string) int {
	if len(a) == 0 || len(a) != len(b) {
		return -1
	}
	count := 0
	for i := 0; i < len(a); i++ {
		if a[i] == b[i] {
			count++
		}
	}
	return count
}

// responsiveHosts counts set bits in a topology bit-vector.
func responsiveHosts(v string) int {
	count := 0
	for i := 0; i < len(v); i++ {
		if v[i] == '1' {
			count++
		}
	}
	return count
}
