// Package phash implements Hashing: decoding an image once per
// cache miss and computing the perceptual hash bits for the requested
// algorithm(s).
//
// The bit-computation functions in this file (averageBits, differenceBits,
// perceptualBits) are pure integer functions over an already-resized
// luminance grid. They are kept free of any image-decoding or I/O so that
// byte-identical hashes across platforms for the same file can be tested
// directly against synthetic grids without needing real image fixtures.
package phash

import "math"

// averageBits implements the Average algorithm: an 8×8 luminance grid,
// thresholded against its own mean. A pixel whose luminance equals the mean
// exactly counts as below it (ties resolve to 0), consistent with
// differenceBits and perceptualBits.
func averageBits(g *grid) uint64 {
	sum := 0
	for _, v := range g.y {
		sum += v
	}
	mean := sum / len(g.y)

	var bits uint64
	bitIndex := 0
	for yy := 0; yy < g.h; yy++ {
		for xx := 0; xx < g.w; xx++ {
			if g.at(xx, yy) > mean {
				bits |= 1 << uint(bitIndex)
			}
			bitIndex++
		}
	}
	return bits
}

// differenceBits implements the Difference algorithm over a 9×8 luminance
// grid: for each row, the 8 adjacent-pixel comparisons L[i] > L[i+1] yield
// one bit each, 64 bits total. Ties (L[i] == L[i+1]) resolve to 0.
func differenceBits(g *grid) uint64 {
	var bits uint64
	bitIndex := 0
	for yy := 0; yy < g.h; yy++ {
		for xx := 0; xx < g.w-1; xx++ {
			if g.at(xx, yy) > g.at(xx+1, yy) {
				bits |= 1 << uint(bitIndex)
			}
			bitIndex++
		}
	}
	return bits
}

// perceptualBits implements the Perceptual algorithm: a 2D DCT-II over a
// 32×32 luminance grid, retaining the top-left 8×8 block of coefficients
// (DC at [0][0] plus 63 AC coefficients). The threshold is the mean of the
// 63 AC coefficients (DC excluded from the mean, step 4), and
// all 64 retained coefficients — including DC — are compared against it to
// produce bits, ties resolving to 0.
func perceptualBits(g *grid) uint64 {
	coeffs := dct2D(g, 8)

	sum := 0.0
	for yy := 0; yy < 8; yy++ {
		for xx := 0; xx < 8; xx++ {
			if xx == 0 && yy == 0 {
				continue // DC excluded from the mean
			}
			sum += coeffs[yy][xx]
		}
	}
	mean := sum / 63

	var bits uint64
	bitIndex := 0
	for yy := 0; yy < 8; yy++ {
		for xx := 0; xx < 8; xx++ {
			if coeffs[yy][xx] > mean {
				bits |= 1 << uint(bitIndex)
			}
			bitIndex++
		}
	}
	return bits
}

// dct2D computes the 2D DCT-II of a square grid and returns the top-left
// keep×keep block of coefficients, using the standard orthonormal scaling
// (documented here to satisfy the "documented DCT scaling"
// determinism requirement):
//
//	C(u) = sqrt(1/N)       for u == 0
//	C(u) = sqrt(2/N)       for u >  0
//
//	F(u,v) = C(u)*C(v) * sum_x sum_y f(x,y) * cos[(2x+1)u*pi/2N] * cos[(2y+1)v*pi/2N]
//
// Each coefficient is rounded to a multiple of 1e-6, so floating-point
// summation residue (e.g. the ~1e-13 left in the AC terms of a perfectly
// uniform grid) reads as exactly 0 instead of flipping bits.
func dct2D(g *grid, keep int) [][]float64 {
	n := g.w // square grid (32x32 by construction)
	cosTableU := cosTable(n)

	out := make([][]float64, keep)
	for u := 0; u < keep; u++ {
		out[u] = make([]float64, keep)
		for v := 0; v < keep; v++ {
			var sum float64
			for x := 0; x < n; x++ {
				for y := 0; y < n; y++ {
					sum += float64(g.at(x, y)) * cosTableU[u][x] * cosTableU[v][y]
				}
			}
			out[u][v] = math.Round(scaleCoeff(u, n)*scaleCoeff(v, n)*sum*1e6) / 1e6
		}
	}
	return out
}

func scaleCoeff(u, n int) float64 {
	if u == 0 {
		return math.Sqrt(1.0 / float64(n))
	}
	return math.Sqrt(2.0 / float64(n))
}

// cosTable precomputes cos[(2x+1)*u*pi/2N] for all u, x in [0, n), since the
// same table is reused for both the row and column passes of dct2D.
func cosTable(n int) [][]float64 {
	t := make([][]float64, n)
	for u := 0; u < n; u++ {
		t[u] = make([]float64, n)
		for x := 0; x < n; x++ {
			t[u][x] = math.Cos(float64(2*x+1) * float64(u) * math.Pi / float64(2*n))
		}
	}
	return t
}
