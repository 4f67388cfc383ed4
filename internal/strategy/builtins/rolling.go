// Package builtins provides the built-in strategy implementations that ship
// with the platform: Buy and Hold, Mean Reversion, Moving Average Crossover,
// and Pairs Trading.
package builtins

import "math"

// Rolling computations require a full window of observations before yielding
// a value: the first window-1 entries of every result are NaN, and a window
// containing NaN input stays NaN. This keeps indicator columns undefined
// until enough history exists, so no signal can fire early.

func rollingMean(x []float64, window int) []float64 {
	return rollingApply(x, window, func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return sum / float64(len(w))
	})
}

// rollingStd is the sample standard deviation (n-1 denominator) over the
// window. Windows of size 1 yield NaN.
func rollingStd(x []float64, window int) []float64 {
	return rollingApply(x, window, func(w []float64) float64 {
		n := len(w)
		if n < 2 {
			return math.NaN()
		}
		mean := 0.0
		for _, v := range w {
			mean += v
		}
		mean /= float64(n)
		var ss float64
		for _, v := range w {
			d := v - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(n-1))
	})
}

func rollingSum(x []float64, window int) []float64 {
	return rollingApply(x, window, func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return sum
	})
}

func rollingApply(x []float64, window int, fn func([]float64) float64) []float64 {
	out := nanSlice(len(x))
	if window < 1 || window > len(x) {
		return out
	}
outer:
	for i := window - 1; i < len(x); i++ {
		w := x[i-window+1 : i+1]
		for _, v := range w {
			if math.IsNaN(v) {
				continue outer
			}
		}
		out[i] = fn(w)
	}
	return out
}

// ema computes an exponential moving average with smoothing 2/(span+1) and
// warmup-corrected weights, so early values are weighted averages of the
// observations seen so far rather than being biased toward x[0].
func ema(x []float64, span int) []float64 {
	out := make([]float64, len(x))
	alpha := 2.0 / (float64(span) + 1.0)
	decay := 1.0 - alpha

	var num, den float64
	for i, v := range x {
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
