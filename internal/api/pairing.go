package api

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const pairingTTL = 2 * time.Minute

// pairingTable holds short-lived pairing codes in memory. Codes are single
// use and expire after pairingTTL; the table is small enough that expired
// entries are swept lazily on issue.
type pairingTable struct {
	mu    sync.Mutex
	codes map[string]pairingEntry
}

type pairingEntry struct {
	visitorID string
	expires   time.Time
}

func newPairingTable() *pairingTable {
	return &pairingTable{codes: make(map[string]pairingEntry)}
}

func (t *pairingTable) issue(visitorID string, now time.Time) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	for code, entry := range t.codes {
		if entry.expires.Before(now) {
			delete(t.codes, code)
		}
	}

	code := newPairingCode()
	for _, taken := t.codes[code]; taken; _, taken = t.codes[code] {
		code = newPairingCode()
	}
	t.codes[code] = pairingEntry{visitorID: visitorID, expires: now.Add(pairingTTL)}
	return code
}

func (t *pairingTable) redeem(code string, now time.Time) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.codes[code]
	if !ok {
		return "", false
	}
	delete(t.codes, code)
	if entry.expires.Before(now) {
		return "", false
	}
	return entry.visitorID, true
}

func newPairingCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	}
	return fmt.Sprintf("%06d", n.Int64())
}
