package vehicle

import (
	"time"

	"github.com/opd-ai/go-racer/pkg/clock"
)

// BoostPhase is the externally visible state of the boost machine.
type BoostPhase int

const (
	BoostIdle BoostPhase = iota
	BoostWarming
	BoostActive
)

// String returns the phase name.
func (p BoostPhase) String() string {
	switch p {
	case BoostWarming:
		return "warming"
	case BoostActive:
		return "active"
	default:
		return "idle"
	}
}

// Boost tracks a car's boost energy. A request arms a warm-up window; the
// boost only engages once the lag has elapsed. The zero value has no energy,
// no pending request and no cooldown.
type Boost struct {
	Energy        float64
	Active        bool
	RequestedAt   time.Time // zero when no request is pending
	StartedAt     time.Time
	CooldownUntil time.Time
}

// BoostTransition reports a phase change produced by one tick.
type BoostTransition int

const (
	BoostUnchanged BoostTransition = iota
	BoostEngaged
	BoostDepleted
	BoostAbandoned
)

// Phase returns the current phase.
func (b *Boost) Phase() BoostPhase {
	switch {
	case b.Active:
		return BoostActive
	case !b.RequestedAt.IsZero():
		return BoostWarming
	default:
		return BoostIdle
	}
}

// CanRequest reports whether a request made at now with the given rev would
// be accepted: energy left, rev inside the window, not active and not cooling
// down.
func (b *Boost) CanRequest(now time.Time, rev float64, p BoostParams) bool {
	if b.Energy <= 0 || b.Active {
		return false
	}
	if rev < p.MinRev || rev > p.MaxRev {
		return false
	}
	return !now.Before(b.CooldownUntil)
}

// Request arms a boost at now. A second request while warming restarts the
// warm-up.
func (b *Boost) Request(now time.Time, rev float64, p BoostParams) bool {
	if !b.CanRequest(now, rev, p) {
		return false
	}
	b.RequestedAt = now
	return true
}

// Multiplier returns the throttle multiplier at now. During warm-up it ramps
// linearly toward 1+Power; once active it is a flat 1+Power.
func (b *Boost) Multiplier(now time.Time, p BoostParams) float64 {
	mult := 1.0
	if !b.RequestedAt.IsZero() {
		elapsed := now.Sub(b.RequestedAt)
		if elapsed < p.Lag {
			lag := clock.Millis(p.Lag)
			if lag < 1 {
				lag = 1
			}
			mult += clock.Millis(elapsed) / lag * p.Power
		}
	}
	if b.Active {
		mult += p.Power
	}
	return mult
}

// Tick advances the machine by dtMs milliseconds ending at now. Energy only
// drains while active and only recharges while idle.
func (b *Boost) Tick(now time.Time, dtMs float64, p BoostParams) BoostTransition {
	switch {
	case b.Active:
		b.Energy -= p.ConsumptionPerMs * dtMs
		if b.Energy <= 0 {
			b.Energy = 0
			b.Active = false
			b.RequestedAt = time.Time{}
			b.CooldownUntil = now.Add(p.Cooldown)
			return BoostDepleted
		}
	case !b.RequestedAt.IsZero():
		if now.Sub(b.RequestedAt) < p.Lag {
			return BoostUnchanged
		}
		b.RequestedAt = time.Time{}
		if b.Energy <= 0 {
			return BoostAbandoned
		}
		b.Active = true
		b.StartedAt = now
		return BoostEngaged
	default:
		b.Energy += p.RechargePerMs * dtMs
		if b.Energy > 1 {
			b.Energy = 1
		}
	}
	return BoostUnchanged
}
