// Package congestion implements the per-writer AIMD (additive increase /
// multiplicative decrease) rate controller and send pacer described in the
// writer engine's congestion-control section.
package congestion

import (
	"sync"

	"github.com/hdds-team/hdds/internal/bytesize"
)

// Defaults for the rate controller, per §4.4, expressed in the same
// human-readable byte-size units the config loader accepts.
var (
	DefaultMinRate = float64(8 * bytesize.KiB)
	DefaultMaxRate = float64(10 * bytesize.MiB)
	DefaultAIStep  = float64(64 * bytesize.KiB)
)

const (
	DefaultSoftFactor = 0.8
	DefaultHardFactor = 0.5
)

// Controller tracks one writer's current send rate in bytes/second. It has
// no cross-writer contention: each writer owns its own Controller.
type Controller struct {
	mu sync.Mutex

	minRate float64
	maxRate float64
	aiStep  float64
	soft    float64
	hard    float64

	rate float64
}

// NewController creates a controller seeded at maxRate/2, per §4.4's
// default start rate.
func NewController(minRate, maxRate, aiStep, softFactor, hardFactor float64) *Controller {
	if minRate <= 0 {
		minRate = DefaultMinRate
	}
	if maxRate <= 0 {
		maxRate = DefaultMaxRate
	}
	if aiStep <= 0 {
		aiStep = DefaultAIStep
	}
	if softFactor <= 0 {
		softFactor = DefaultSoftFactor
	}
	if hardFactor <= 0 {
		hardFactor = DefaultHardFactor
	}
	return &Controller{
		minRate: minRate,
		maxRate: maxRate,
		aiStep:  aiStep,
		soft:    softFactor,
		hard:    hardFactor,
		rate:    maxRate / 2,
	}
}

// Rate returns the current rate in bytes/second.
func (c *Controller) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// OnRTTNoCongestion applies additive increase: one RTT elapsed with no
// congestion signal (no duplicate ACK, no NACK, no latency rise).
func (c *Controller) OnRTTNoCongestion() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate += c.aiStep
	if c.rate > c.maxRate {
		c.rate = c.maxRate
	}
	return c.rate
}

// OnSoftCongestion applies the soft multiplicative-decrease factor,
// triggered by latency rise or a duplicate ACK.
func (c *Controller) OnSoftCongestion() float64 {
	return c.decrease(c.soft)
}

// OnHardCongestion applies the hard multiplicative-decrease factor,
// triggered by an explicit NACK or detected packet loss.
func (c *Controller) OnHardCongestion() float64 {
	return c.decrease(c.hard)
}

func (c *Controller) decrease(factor float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate *= factor
	if c.rate < c.minRate {
		c.rate = c.minRate
	}
	return c.rate
}
