// Package sensemap implements the 3D Bayesian belief tensor over
// (region, time slot, agent category) that the allocator reads for its
// acquisition signal, maintained online via a Matern-5/2 Gaussian process.
package sensemap

import (
	"fmt"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/elektrokombinacija/crowdsense/internal/category"
	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/simerr"
	"github.com/elektrokombinacija/crowdsense/internal/timeline"
)

// Key identifies one cell of the belief tensor.
type Key struct {
	Reg, TS, Cat int
}

type cell struct {
	Mu, Sigma float64
}

type observation struct {
	RPref float64
	Key   Key
}

// Config bundles the sense-map's tunable parameters.
type Config struct {
	Rho        float64
	SigmaNoise float64
	Kappa      float64 // cycle-rollover acquisition kappa
	HistoryMax int
}

// DefaultConfig returns the spec's default sense-map parameters.
func DefaultConfig() Config {
	return Config{Rho: 0.05, SigmaNoise: 0.03, Kappa: 0.3, HistoryMax: 10}
}

// SenseMap is the belief tensor over (region, time slot, agent category).
type SenseMap struct {
	Regions []geo.Region
	Slots   []timeline.TimeSlot
	Cats    []category.Category
	cfg     Config
	dMax    float64

	cells map[Key]cell
	prior map[Key]float64

	history []observation

	updateTimes int
	log         *zap.SugaredLogger
}

// New builds a sense-map over the given domain. dMax is the sense area's
// diagonal, used to normalize region distance in the kernel.
func New(regions []geo.Region, slots []timeline.TimeSlot, cats []category.Category, dMax float64, cfg Config, log *zap.SugaredLogger) *SenseMap {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SenseMap{
		Regions: regions,
		Slots:   slots,
		Cats:    cats,
		cfg:     cfg,
		dMax:    dMax,
		cells:   make(map[Key]cell),
		prior:   make(map[Key]float64),
		log:     log,
	}
}

func (m *SenseMap) cellCount() int {
	return len(m.Regions) * len(m.Slots) * len(m.Cats)
}

func (m *SenseMap) validate(k Key) error {
	if k.Reg < 0 || k.Reg >= len(m.Regions) || k.TS < 0 || k.TS >= len(m.Slots) || k.Cat < 0 || k.Cat >= len(m.Cats) {
		return fmt.Errorf("sensemap: key %+v out of range: %w", k, simerr.ErrIndexOutOfRange)
	}
	return nil
}

// Get returns the (mu, sigma) belief at key, defaulting to (0,0) if the
// cell has never been materialized.
func (m *SenseMap) Get(k Key) (float64, float64, error) {
	if err := m.validate(k); err != nil {
		return 0, 0, err
	}
	c := m.cells[k]
	return c.Mu, c.Sigma, nil
}

// UpdateRatio is the number of observations folded in since the last cycle
// rollover divided by the number of cells; repeated observations of one
// cell each count, so it can exceed 1. It drives the self-repair soft
// trigger.
func (m *SenseMap) UpdateRatio() float64 {
	n := m.cellCount()
	if n == 0 {
		return 0
	}
	return float64(m.updateTimes) / float64(n)
}

// SetPrior seeds the prior belief for key, used before BeginUpdating.
func (m *SenseMap) SetPrior(k Key, prior float64) {
	m.prior[k] = prior
}

// BeginUpdating initializes every cell's belief from the prior map: mu is a
// travel-time estimate scaled by the normalized prior, sigma is the
// kernel's self-similarity k(p,p).
func (m *SenseMap) BeginUpdating() {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range m.prior {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	spread := hi - lo
	if spread <= 0 || math.IsInf(spread, 0) {
		spread = 1
	}
	for i := range m.Regions {
		for j := range m.Slots {
			for k := range m.Cats {
				key := Key{i, j, k}
				p := m.prior[key]
				mu := p / spread * m.Cats[k].IntraD(m.Regions[i]) / speedOf(m.Cats[k])
				sigma := m.matern(key, key)
				m.cells[key] = cell{Mu: mu, Sigma: sigma}
			}
		}
	}
}

func speedOf(c category.Category) float64 {
	if c.Speed == 0 {
		return 1
	}
	return c.Speed
}

// Update folds in an observation at region regID, agent category catID,
// real completion time realTime, having planned idealUsed time and actually
// used realUsed time. fatal forces the worst-case preference value
// regardless of timing (a fatal sense failure).
func (m *SenseMap) Update(regID, catID int, realTime, idealUsed, realUsed float64, fatal bool) error {
	ts, ok := timeline.SlotFor(m.Slots, realTime)
	if !ok {
		return fmt.Errorf("sensemap: no time slot contains %.2f: %w", realTime, simerr.ErrIndexOutOfRange)
	}
	key := Key{Reg: regID, TS: ts.ID, Cat: catID}
	if err := m.validate(key); err != nil {
		return err
	}

	rPref := 0.0
	if !fatal && realUsed > 0 {
		rPref = idealUsed / realUsed
	}
	if rPref > 1.1 {
		rPref = 1.1
	} else if rPref < 0 {
		rPref = 0
	}

	if len(m.history) > m.cfg.HistoryMax {
		m.rollover()
	}
	m.history = append(m.history, observation{RPref: rPref, Key: key})

	if err := m.updateGaussianProcess(); err != nil {
		return err
	}
	m.updateTimes++
	return nil
}

func (m *SenseMap) rollover() {
	for _, obs := range m.history {
		m.prior[obs.Key] = m.AcquireFunction(obs.Key, m.cfg.Kappa)
	}
	m.history = nil
	m.updateTimes = 0
}

// AcquireFunction is the allocator-facing acquisition signal: mu + kappa*sigma.
func (m *SenseMap) AcquireFunction(k Key, kappa float64) float64 {
	c := m.cells[k]
	return c.Mu + kappa*c.Sigma
}

func (m *SenseMap) updateGaussianProcess() error {
	n := len(m.history)
	if n == 0 {
		return nil
	}

	pDiff := mat.NewVecDense(n, nil)
	for i, obs := range m.history {
		pDiff.SetVec(i, obs.RPref-m.prior[obs.Key])
	}

	kMat := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v, err := m.maternNormalized(m.history[i].Key, m.history[j].Key)
			if err != nil {
				return err
			}
			if i == j {
				v += m.cfg.SigmaNoise
			}
			kMat.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(kMat); !ok {
		m.log.Warnw("sensemap: gram matrix not positive definite, skipping GP update this round")
		return nil
	}

	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, pDiff); err != nil {
		return fmt.Errorf("sensemap: solving GP system: %w", err)
	}

	for key := range m.cells {
		kq := mat.NewVecDense(n, nil)
		for i, obs := range m.history {
			v, err := m.maternNormalized(key, obs.Key)
			if err != nil {
				return err
			}
			kq.SetVec(i, v)
		}
		var beta mat.VecDense
		if err := chol.SolveVecTo(&beta, kq); err != nil {
			return fmt.Errorf("sensemap: solving GP system: %w", err)
		}
		selfK, err := m.maternNormalized(key, key)
		if err != nil {
			return err
		}
		mu := m.prior[key] + mat.Dot(kq, &alpha)
		sigma := selfK - mat.Dot(kq, &beta)
		m.cells[key] = cell{Mu: mu, Sigma: sigma}
	}
	return nil
}

// dist is the normalized composite distance between two cells: a
// 1/3-1/3-1/3 blend of region distance (over the grid diagonal), cyclic
// time-slot distance (over the slot count), and category dissimilarity.
func (m *SenseMap) dist(a, b Key) (float64, error) {
	if err := m.validate(a); err != nil {
		return 0, err
	}
	if err := m.validate(b); err != nil {
		return 0, err
	}
	regDist := m.Regions[a.Reg].Dist(m.Regions[b.Reg])
	tsDist := float64(m.Slots[a.TS].Dist(m.Slots[b.TS], len(m.Slots)))
	rcDist := m.Cats[a.Cat].Dissimilarity(m.Cats[b.Cat])

	n := float64(len(m.Slots))
	if n == 0 {
		n = 1
	}
	dMax := m.dMax
	if dMax == 0 {
		dMax = 1
	}
	d := (regDist/dMax + tsDist/n + rcDist) / 3
	if d < 0 || d > 1 {
		return 0, fmt.Errorf("sensemap: composite distance %.4f out of [0,1]: %w", d, simerr.ErrKernelDomain)
	}
	return d, nil
}

// matern evaluates the kernel, logging and returning 0 rather than
// propagating a domain error — used only in BeginUpdating's self-similarity
// call, where a == b and the distance is always exactly 0.
func (m *SenseMap) matern(a, b Key) float64 {
	v, err := m.maternNormalized(a, b)
	if err != nil {
		m.log.Warnw("kernel distance out of domain", "error", err)
		return 0
	}
	return v
}

func (m *SenseMap) maternNormalized(a, b Key) (float64, error) {
	d, err := m.dist(a, b)
	if err != nil {
		return 0, err
	}
	rho := m.cfg.Rho
	sqrt5 := math.Sqrt(5)
	return (1 + sqrt5*d/rho + 5*d*d/(3*rho*rho)) * math.Exp(-sqrt5*d/rho), nil
}

type snapshot struct {
	Sequence int                `toml:"sequence"`
	Priors   map[string]float64 `toml:"priors"`
}

// Dump writes the current prior map to path in TOML, tagged with a
// monotonically increasing cycle sequence number.
func (m *SenseMap) Dump(path string, sequence int) error {
	snap := snapshot{Sequence: sequence, Priors: make(map[string]float64, len(m.prior))}
	for k, v := range m.prior {
		snap.Priors[keyToString(k)] = v
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(snap)
}

// Load reads a prior-map snapshot previously written by Dump and returns its
// cycle sequence number.
func (m *SenseMap) Load(path string) (int, error) {
	var snap snapshot
	if _, err := toml.DecodeFile(path, &snap); err != nil {
		return 0, err
	}
	for k, v := range snap.Priors {
		key, err := keyFromString(k)
		if err != nil {
			return 0, err
		}
		m.prior[key] = v
	}
	return snap.Sequence, nil
}

func keyToString(k Key) string {
	return fmt.Sprintf("%d_%d_%d", k.Reg, k.TS, k.Cat)
}

func keyFromString(s string) (Key, error) {
	var k Key
	_, err := fmt.Sscanf(s, "%d_%d_%d", &k.Reg, &k.TS, &k.Cat)
	return k, err
}
