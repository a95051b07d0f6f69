package world

import (
	"math"
	"math/rand"
)

// logNormal models a real-world duration as a log-normal random variable:
// if X ~ LogNormal(mu, sigma), ln(X) ~ Normal(mu, sigma). Durations are
// strictly positive and right-skewed, unlike a Normal, which is the
// behavior real sensing/travel times show.
type logNormal struct {
	Mu, Sigma float64
}

// newLogNormalFromMeanStd derives (mu, sigma) from the desired mean and
// standard deviation of X itself, not of ln(X).
func newLogNormalFromMeanStd(mean, std float64) logNormal {
	if mean <= 0 || std < 0 {
		return logNormal{}
	}
	variance := std * std
	sigma2 := math.Log(1 + variance/(mean*mean))
	sigma := math.Sqrt(sigma2)
	mu := math.Log(mean) - sigma2/2
	return logNormal{Mu: mu, Sigma: sigma}
}

// sample draws a random duration.
func (d logNormal) sample(rng *rand.Rand) float64 {
	normal := rng.NormFloat64()*d.Sigma + d.Mu
	return math.Exp(normal)
}
