// Package world defines the boundary between the simulator and the
// physical process it stands in for: whether an agent can actually sense
// its current region, and how long its current action really takes. Only
// the interface is in scope; SimulatedOracle is a reference implementation
// for tests and the CLI demo.
package world

import (
	"math/rand"

	"github.com/elektrokombinacija/crowdsense/internal/agent"
)

// Oracle supplies real-world outcomes the simulator cannot compute from the
// plan alone.
type Oracle interface {
	// CanSense reports whether the agent can successfully sense its
	// current (Moving, about to arrive) region.
	CanSense(a *agent.Agent) bool
	// ComputeDuration returns how long the agent's current action (moving
	// to, or sensing at, its next planned step) actually takes.
	ComputeDuration(a *agent.Agent) float64
	// IsDamaged reports whether the agent breaks down during its current
	// sensing attempt.
	IsDamaged(a *agent.Agent) bool
}

// CategoryParams holds the per-category noise and reliability parameters a
// naive isinstance-dispatch world model would instead switch on by type.
type CategoryParams struct {
	// DurationNoiseStd is the standard deviation, as a fraction of the
	// ideal planned duration, of the real duration's log-normal noise.
	DurationNoiseStd float64
	// SenseSuccessProb is the probability an agent can sense its current
	// region on a given attempt.
	SenseSuccessProb float64
	// DamageProb is the probability an agent of this category breaks down
	// on a given sensing attempt.
	DamageProb float64
}

// DefaultCategoryParams returns a modest-noise, near-always-succeeds,
// rarely-damaged set of parameters, used for any category id not present in
// a SimulatedOracle's table.
func DefaultCategoryParams() CategoryParams {
	return CategoryParams{DurationNoiseStd: 0.1, SenseSuccessProb: 0.97, DamageProb: 0.01}
}

// SimulatedOracle is a stochastic reference world: it draws durations from
// a log-normal distribution centered on the plan's ideal time, and fails
// sensing attempts at a per-category rate, keyed by category id rather than
// a runtime type switch.
type SimulatedOracle struct {
	Params map[int]CategoryParams
	rng    *rand.Rand
}

// NewSimulatedOracle builds a SimulatedOracle seeded for reproducibility.
func NewSimulatedOracle(seed int64, params map[int]CategoryParams) *SimulatedOracle {
	if params == nil {
		params = make(map[int]CategoryParams)
	}
	return &SimulatedOracle{Params: params, rng: rand.New(rand.NewSource(seed))}
}

func (o *SimulatedOracle) paramsFor(catID int) CategoryParams {
	if p, ok := o.Params[catID]; ok {
		return p
	}
	return DefaultCategoryParams()
}

// CanSense draws a Bernoulli outcome at the agent category's success rate.
func (o *SimulatedOracle) CanSense(a *agent.Agent) bool {
	p := o.paramsFor(a.Category.ID)
	return o.rng.Float64() < p.SenseSuccessProb
}

// IsDamaged draws a Bernoulli outcome at the agent category's breakdown
// rate.
func (o *SimulatedOracle) IsDamaged(a *agent.Agent) bool {
	p := o.paramsFor(a.Category.ID)
	return o.rng.Float64() < p.DamageProb
}

// ComputeDuration returns a log-normal sample centered on the ideal
// duration of the agent's current action (moving toward, or sensing at,
// Steps[Cursor+1]).
func (o *SimulatedOracle) ComputeDuration(a *agent.Agent) float64 {
	if a.Cursor+1 >= len(a.Steps) {
		return 0
	}
	step := a.Steps[a.Cursor+1]

	var ideal float64
	switch a.State {
	case agent.Moving:
		ideal = step.IdealMovingTime
	case agent.Sensing:
		ideal = step.IdealSensingTime
	default:
		ideal = step.IdealTimeUsed
	}
	if ideal <= 0 {
		return 0
	}

	p := o.paramsFor(a.Category.ID)
	dist := newLogNormalFromMeanStd(ideal, ideal*p.DurationNoiseStd)
	if dist.Sigma == 0 {
		return ideal
	}
	return dist.sample(o.rng)
}
