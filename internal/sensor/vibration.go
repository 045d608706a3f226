package sensor

import (
	"math"
	"math/rand/v2"
)

// Accelerometer synthesis parameters: one second of a 50 Hz mains-driven
// rotation sampled at 1 kHz.
const (
	vibrationFrequencyHz = 50.0
	vibrationSampleRate  = 1000
	vibrationSamples     = vibrationSampleRate // one second
	vibrationNoiseRatio  = 0.05
)

// synthesizeRMS builds a sinusoid whose clean RMS equals targetRMS, adds
// gaussian measurement noise and returns the RMS of the noisy signal.
func synthesizeRMS(targetRMS float64, rng *rand.Rand) float64 {
	peak := targetRMS * math.Sqrt2
	sigma := vibrationNoiseRatio * peak

	var sumSq float64
	for i := 0; i < vibrationSamples; i++ {
		t := float64(i) / vibrationSampleRate
		sample := peak*math.Sin(2*math.Pi*vibrationFrequencyHz*t) + rng.NormFloat64()*sigma
		sumSq += sample * sample
	}
	rms := math.Sqrt(sumSq / vibrationSamples)
	return round2(math.Max(rms, 0))
}
