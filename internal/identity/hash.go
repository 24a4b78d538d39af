package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// HashMode selects the digest used for tier identifiers.
type HashMode int

const (
	// HashSHA256 truncates a SHA-256 digest to 32 hex characters.
	HashSHA256 HashMode = iota
	// HashRolling is a deterministic 32-bit rolling hash for runtimes
	// without a cryptographic primitive.
	HashRolling
)

const truncatedDigestLen = 32

func digest(mode HashMode, payload string) string {
	switch mode {
	case HashRolling:
		return rollingHash(payload)
	default:
		sum := sha256.Sum256([]byte(payload))
		return hex.EncodeToString(sum[:])[:truncatedDigestLen]
	}
}

// rollingHash is a 32-bit multiply-and-add hash over the payload bytes.
// It is deterministic across runs and platforms.
func rollingHash(payload string) string {
	var h uint32 = 5381
	for i := 0; i < len(payload); i++ {
		h = h*33 + uint32(payload[i])
	}
	return fmt.Sprintf("%08x", h)
}

// canonicalize serializes a name→data map deterministically: keys sorted
// lexicographically, values rendered with a stable encoding. Identical maps
// always produce identical output regardless of insertion order.
func canonicalize(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(k)
		b.WriteByte('=')
		writeValue(&b, data[k])
	}
	return b.String()
}

func writeValue(b *strings.Builder, value any) {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case string:
		b.WriteString(strconv.Quote(v))
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case int:
		b.WriteString(strconv.Itoa(v))
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case float32:
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case []string:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(item))
		}
		b.WriteByte(']')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, item)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeValue(b, v[k])
		}
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "%v", v)
	}
}
