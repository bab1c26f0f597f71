/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package waveform

import "math"

// Demean removes the arithmetic mean in place.
func Demean(x []float64) {
	if len(x) == 0 {
		return
	}

	var sum float64
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(len(x))
	for i := range x {
		x[i] -= mean
	}
}

// DetrendLinear removes the least squares line in place.
func DetrendLinear(x []float64) {
	n := len(x)
	if n < 2 {
		Demean(x)
		return
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range x {
		fi := float64(i)
		sumX += fi
		sumY += v
		sumXY += fi * v
		sumXX += fi * fi
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		Demean(x)
		return
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	for i := range x {
		x[i] -= intercept + slope*float64(i)
	}
}

// Taper applies a Hann taper over the given fraction of each end.
func Taper(x []float64, fraction float64) {
	n := len(x)
	m := int(fraction * float64(n))
	if m > n/2 {
		m = n / 2
	}
	if m < 1 {
		return
	}

	for i := 0; i < m; i++ {
		w := 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(m)))
		x[i] *= w
		x[n-1-i] *= w
	}
}

// HighPass applies a causal second order Butterworth style high pass
// (biquad, Q=1/sqrt(2)) in place.
func HighPass(x []float64, rate, corner float64) {
	if corner <= 0 || corner >= rate/2 {
		return
	}

	w0 := 2 * math.Pi * corner / rate
	c := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2

	a0 := 1 + alpha
	b0 := (1 + c) / 2 / a0
	b1 := -(1 + c) / a0
	b2 := (1 + c) / 2 / a0
	a1 := -2 * c / a0
	a2 := (1 - alpha) / a0

	var z1, z2 float64
	for i, v := range x {
		y := b0*v + z1
		z1 = b1*v - a1*y + z2
		z2 = b2*v - a2*y
		x[i] = y
	}
}

// MaxAbs returns the largest absolute sample value.
func MaxAbs(x []float64) float64 {
	var max float64
	for _, v := range x {
		if a := math.Abs(v); a > max {
			max = a
		}
	}
	return max
}

// Resample returns a copy of the trace interpolated to the target
// rate using a windowed sinc kernel. Downsampling low passes below
// the new Nyquist frequency first.
func Resample(t *Trace, target float64) *Trace {
	if target <= 0 || len(t.Data) == 0 {
		return t.Copy()
	}
	if math.Abs(t.SampleRate-target) < 1e-9*target {
		return t.Copy()
	}

	ratio := target / t.SampleRate
	n := len(t.Data)
	outN := int(math.Floor(float64(n-1)*ratio+1e-9)) + 1

	fc := 1.0
	if ratio < 1 {
		fc = ratio
	}
	fc *= 0.95

	const halfWidth = 32

	out := make([]float64, outN)
	for j := range out {
		pos := float64(j) / ratio
		lo := int(math.Ceil(pos)) - halfWidth
		hi := int(math.Floor(pos)) + halfWidth
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}

		var acc, norm float64
		for i := lo; i <= hi; i++ {
			u := pos - float64(i)
			w := fc * sinc(fc*u) * hann(u/halfWidth)
			acc += t.Data[i] * w
			norm += w
		}
		if norm != 0 {
			out[j] = acc / norm
		}
	}

	c := t.Copy()
	c.SampleRate = target
	c.Data = out
	return c
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func hann(u float64) float64 {
	if u < -1 || u > 1 {
		return 0
	}
	return 0.5 * (1 + math.Cos(math.Pi*u))
}
