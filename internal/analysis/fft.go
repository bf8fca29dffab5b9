package analysis

import (
	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns the squared magnitude of the first half of the
// transform of data with its mean removed, zero-padded to the next power
// of two.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	padded := make([]float64, nextPow2(len(data)))
	for i, v := range data {
		padded[i] = v - mean
	}

	spectrum := fft.FFTReal(padded)
	ps := make([]float64, len(spectrum)/2)

	for i := range ps {
		re, im := real(spectrum[i]), imag(spectrum[i])
		ps[i] = re*re + im*im
	}

	return ps
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
