package geometry

import "math"

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	out[n-1] = stop
	return out
}

// SinSpace returns n sine-spaced values from start to stop. Points bunch up
// near start; with reverse they bunch up near stop.
func SinSpace(start, stop float64, n int, reverse bool) []float64 {
	sines := make([]float64, n)
	for i, t := range Linspace(0, math.Pi/2, n) {
		sines[i] = math.Sin(t)
	}
	out := make([]float64, n)
	for i := range out {
		if reverse {
			out[i] = start + (stop-start)*sines[i]
		} else {
			out[i] = stop + (start-stop)*sines[n-1-i]
		}
	}
	return out
}

// CosSpace returns n cosine-spaced values, bunched at both ends.
func CosSpace(start, stop float64, n int) []float64 {
	mean := (start + stop) / 2
	amp := (stop - start) / 2
	out := make([]float64, n)
	for i, t := range Linspace(math.Pi, 0, n) {
		out[i] = mean + amp*math.Cos(t)
	}
	return out
}

// Diff returns the forward differences of xs.
func Diff(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := range out {
		out[i] = xs[i+1] - xs[i]
	}
	return out
}
