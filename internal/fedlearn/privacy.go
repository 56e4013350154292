package fedlearn

import (
	"math"

	"github.com/hafsaghannaj/maternal/internal/model"
)

// Accountant tracks cumulative privacy loss across rounds for a fixed δ using
// the moments accountant of Abadi et al. (CCS 2016): each privatized step
// contributes a log-moment of at most q²·λ(λ+1)/σ² at order λ, moments add
// under composition, and ε(δ) = min_λ (M(λ) + ln(1/δ)) / λ. Composition is
// sub-linear in the round count for a fixed σ, unlike the naive product bound.
//
// The accountant is mutated only by the coordinator, which serializes rounds.
type Accountant struct {
	delta      float64
	orders     []float64
	logMoments []float64
	ledger     []model.LedgerEntry
}

// momentOrders is the λ grid the minimum is taken over, matching the range
// commonly used by published accountant implementations.
func momentOrders() []float64 {
	orders := make([]float64, 0, 63)
	for l := 2; l <= 64; l++ {
		orders = append(orders, float64(l))
	}
	return orders
}

func NewAccountant(delta float64) *Accountant {
	return &Accountant{
		delta:      delta,
		orders:     momentOrders(),
		logMoments: make([]float64, 63),
	}
}

// Delta returns the fixed δ the accountant converts moments at.
func (a *Accountant) Delta() float64 {
	return a.delta
}

// RecordRound charges the ledger for one committed round of steps privatized
// steps at noise multiplier sigma and sampling rate q, and returns the new
// ledger entry carrying the updated cumulative ε.
func (a *Accountant) RecordRound(round int, sigma, clip float64, sampleCount int, sampleRate float64, steps int) model.LedgerEntry {
	a.accumulate(sigma, sampleRate, steps)

	entry := model.LedgerEntry{
		Round:             round,
		NoiseMultiplier:   sigma,
		ClipNorm:          clip,
		SampleCount:       sampleCount,
		SampleRate:        sampleRate,
		CumulativeEpsilon: a.Epsilon(),
	}
	a.ledger = append(a.ledger, entry)
	return entry
}

// Epsilon returns the cumulative privacy loss recorded so far.
func (a *Accountant) Epsilon() float64 {
	return a.epsilonFor(a.logMoments)
}

// EpsilonAfter returns the hypothetical cumulative ε if another round of
// steps privatized steps were charged, without mutating the ledger. The
// coordinator uses it to refuse rounds that would exceed the budget.
func (a *Accountant) EpsilonAfter(sigma, sampleRate float64, steps int) float64 {
	projected := make([]float64, len(a.logMoments))
	copy(projected, a.logMoments)
	addMoments(projected, a.orders, sigma, sampleRate, steps)
	return a.epsilonFor(projected)
}

// Ledger returns a copy of the append-only per-round entries.
func (a *Accountant) Ledger() []model.LedgerEntry {
	ledger := make([]model.LedgerEntry, len(a.ledger))
	copy(ledger, a.ledger)
	return ledger
}

// Reset discards all accumulated loss. Only initialize() calls this.
func (a *Accountant) Reset(delta float64) {
	a.delta = delta
	a.logMoments = make([]float64, len(a.orders))
	a.ledger = nil
}

func (a *Accountant) accumulate(sigma, sampleRate float64, steps int) {
	addMoments(a.logMoments, a.orders, sigma, sampleRate, steps)
}

func addMoments(moments, orders []float64, sigma, sampleRate float64, steps int) {
	for i, order := range orders {
		moments[i] += float64(steps) * stepMoment(sigma, sampleRate, order)
	}
}

// stepMoment is the per-step log-moment bound for the subsampled Gaussian
// mechanism. σ = 0 means unbounded loss.
func stepMoment(sigma, sampleRate, order float64) float64 {
	if sigma <= 0 {
		return math.Inf(1)
	}
	return sampleRate * sampleRate * order * (order + 1) / (sigma * sigma)
}

func (a *Accountant) epsilonFor(moments []float64) float64 {
	if a.delta <= 0 || a.delta >= 1 {
		return math.Inf(1)
	}

	recorded := false
	for _, m := range moments {
		if m != 0 {
			recorded = true
			break
		}
	}
	if !recorded {
		return 0
	}

	eps := math.Inf(1)
	logInvDelta := math.Log(1 / a.delta)
	for i, order := range a.orders {
		candidate := (moments[i] + logInvDelta) / order
		if candidate < eps {
			eps = candidate
		}
	}
	return eps
}
