package fbasis

import (
	"math"
)

// besselJ returns J_nu(x) and J_{nu+1}(x) for nu >= 0 and x >= 0.
//
// Small arguments use the power series. Otherwise the ratios are produced by
// Miller's backward recurrence and normalized with
//
//	(x/2)^nu = sum_k (nu+2k) Gamma(nu+k)/k! J_{nu+2k}(x)
func besselJ(nu, x float64) (float64, float64) {
	switch {
	case x == 0:
		j0 := 0.0
		if nu == 0 {
			j0 = 1
		}
		return j0, 0
	case x < 1:
		return besselSeries(nu, x), besselSeries(nu+1, x)
	}
	return besselMiller(nu, x)
}

func besselSeries(nu, x float64) float64 {
	lg, _ := math.Lgamma(nu + 1)
	term := math.Exp(nu*math.Log(x/2) - lg)
	q := -(x * x) / 4
	sum := term
	for k := 1; k < 200; k++ {
		term *= q / (float64(k) * (nu + float64(k)))
		sum += term
		if math.Abs(term) <= 1e-17*math.Abs(sum) {
			break
		}
	}
	return sum
}

func besselMiller(nu, x float64) (float64, float64) {
	n := int(x) + 4*int(math.Cbrt(x)) + 40
	if n%2 == 1 {
		n++
	}

	f := make([]float64, n+2)
	f[n] = 1e-30
	for k := n; k > 0; k-- {
		f[k-1] = 2*(nu+float64(k))/x*f[k] - f[k+1]
		if math.Abs(f[k-1]) > 1e250 {
			for i := k - 1; i <= n; i++ {
				f[i] *= 1e-250
			}
		}
	}

	var peak float64
	for _, v := range f {
		peak = math.Max(peak, math.Abs(v))
	}
	for i := range f {
		f[i] /= peak
	}

	lx := math.Log(x / 2)
	lg0, _ := math.Lgamma(nu + 1)
	norm := math.Exp(lg0-nu*lx) * f[0]
	for k := 1; 2*k <= n; k++ {
		lg, _ := math.Lgamma(nu + float64(k))
		lf, _ := math.Lgamma(float64(k + 1))
		norm += (nu + 2*float64(k)) * math.Exp(lg-lf-nu*lx) * f[2*k]
	}

	return f[0] / norm, f[1] / norm
}

// firstMax approximates the location of the first maximum of J_nu
func firstMax(nu float64) float64 {
	if nu <= 0 {
		return 0
	}
	c := math.Cbrt(nu)
	return nu + 0.8086165*c + 0.07249/c
}
