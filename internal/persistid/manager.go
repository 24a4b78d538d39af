package persistid

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"beacon/internal/logging"
)

// Resolution describes how an identifier was obtained.
type Resolution struct {
	// Value is the canonical visitor identifier.
	Value string
	// Fresh is true when no backend held a value and a new one was minted.
	Fresh bool
	// Votes maps each stored value to the number of backends holding it.
	Votes map[string]int
}

// RespawnReport summarizes a write-back pass.
type RespawnReport struct {
	// Healed counts backends that were missing or disagreeing and now hold
	// the canonical value.
	Healed int
	// Agreed counts backends that already held the canonical value.
	Agreed int
	// Failed counts backends whose write did not succeed.
	Failed int
}

// Manager arbitrates the visitor identifier across backends. Backend order is
// priority order: earlier backends win majority ties.
type Manager struct {
	backends []Backend
	logger   *slog.Logger
}

// NewManager builds a manager over the given backends. Order matters.
func NewManager(backends []Backend, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		backends: backends,
		logger:   logging.WithComponent(logger, "persistid"),
	}
}

// Resolve reads every available backend and majority-votes on the stored
// values. Read failures count as absent. Ties go to the value held by the
// highest-priority backend. When every backend is empty a fresh UUID is
// minted; Respawn distributes it.
func (m *Manager) Resolve(ctx context.Context) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}

	votes := make(map[string]int)
	firstSeen := make(map[string]int)
	for idx, backend := range m.backends {
		if !backend.Available() {
			continue
		}
		value, err := backend.Read(ctx)
		if err != nil {
			if !errors.Is(err, ErrAbsent) {
				m.logger.Debug("backend read failed",
					logging.String("backend", backend.Name()),
					logging.Error(err))
			}
			continue
		}
		if value == "" {
			continue
		}
		votes[value]++
		if _, ok := firstSeen[value]; !ok {
			firstSeen[value] = idx
		}
	}

	if len(votes) == 0 {
		fresh := uuid.NewString()
		m.logger.Info("no stored identifier, minting fresh", logging.String("visitor_id", fresh))
		return Resolution{Value: fresh, Fresh: true, Votes: votes}, nil
	}

	var winner string
	for value, count := range votes {
		if winner == "" {
			winner = value
			continue
		}
		switch {
		case count > votes[winner]:
			winner = value
		case count == votes[winner] && firstSeen[value] < firstSeen[winner]:
			winner = value
		}
	}

	return Resolution{Value: winner, Votes: votes}, nil
}

// Respawn writes the canonical value back to every available backend so that
// a cleared or disagreeing channel converges. Per-backend failures are
// tolerated and counted, never fatal.
func (m *Manager) Respawn(ctx context.Context, value string) RespawnReport {
	var report RespawnReport
	for _, backend := range m.backends {
		if !backend.Available() {
			continue
		}
		current, err := backend.Read(ctx)
		if err == nil && current == value {
			report.Agreed++
			continue
		}
		if writeErr := backend.Write(ctx, value); writeErr != nil {
			report.Failed++
			m.logger.Warn("backend respawn failed",
				logging.String("backend", backend.Name()),
				logging.Error(writeErr))
			continue
		}
		report.Healed++
	}
	return report
}

// ResolveAndRespawn resolves the identifier and immediately heals every
// backend to it.
func (m *Manager) ResolveAndRespawn(ctx context.Context) (Resolution, RespawnReport, error) {
	resolution, err := m.Resolve(ctx)
	if err != nil {
		return resolution, RespawnReport{}, err
	}
	report := m.Respawn(ctx, resolution.Value)
	return resolution, report, nil
}
