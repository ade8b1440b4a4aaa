package engine

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"geodiff/domain/core"
	"geodiff/domain/diffexpr"
)

// deProportion is the assumed proportion of differentially expressed genes
// used by the B (log-odds) statistic.
const deProportion = 0.01

// v0Limits clamp the estimated prior variance of the coefficient (squared
// stdev.coef limits).
var v0Limits = [2]float64{0.1 * 0.1, 4 * 4}

// Moderated holds the empirical-Bayes output for every gene of a contrast.
type Moderated struct {
	DFPrior float64
	S2Prior float64
	S2Post  []float64
	DFTotal []float64
	T       []float64
	P       []float64
	LogOdds []float64
}

// EBayes applies empirical-Bayes variance moderation across all genes
// jointly: the per-gene residual variances are pooled to estimate a prior
// (scaled inverse chi-square with DFPrior degrees of freedom and scale
// S2Prior), each gene's variance is shrunk toward that prior, and the
// t-statistic, two-sided p-value and B log-odds are recomputed from the
// moderated variance. This borrowing of information across genes is what
// stabilizes the tests at two or three samples per group.
func EBayes(cf *diffexpr.ContrastFit) (*Moderated, error) {
	n := len(cf.Genes)
	if n == 0 {
		return nil, core.NewEmptyInputError("ebayes", 0)
	}

	df0, s0sq, err := fitFDist(cf.Sigma2, cf.DF)
	if err != nil {
		return nil, err
	}

	out := &Moderated{
		DFPrior: df0,
		S2Prior: s0sq,
		S2Post:  make([]float64, n),
		DFTotal: make([]float64, n),
		T:       make([]float64, n),
		P:       make([]float64, n),
		LogOdds: make([]float64, n),
	}

	// df.total is capped at the pooled residual df, matching the accepted
	// moderated-t formulation.
	dfSum := 0.0
	for _, df := range cf.DF {
		if df > 0 {
			dfSum += df
		}
	}

	for i := 0; i < n; i++ {
		df, s2 := cf.DF[i], cf.Sigma2[i]
		if df <= 0 || math.IsNaN(s2) || math.IsNaN(cf.Effect[i]) {
			out.S2Post[i] = math.NaN()
			out.DFTotal[i] = 0
			out.T[i] = math.NaN()
			out.P[i] = math.NaN()
			out.LogOdds[i] = math.NaN()
			continue
		}
		if math.IsInf(df0, 1) {
			out.S2Post[i] = s0sq
			out.DFTotal[i] = dfSum
		} else {
			out.S2Post[i] = (df0*s0sq + df*s2) / (df0 + df)
			out.DFTotal[i] = math.Min(df+df0, dfSum)
		}
		out.T[i] = cf.Effect[i] / (cf.Unscaled[i] * math.Sqrt(out.S2Post[i]))
		tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: out.DFTotal[i]}
		out.P[i] = 2 * tDist.CDF(-math.Abs(out.T[i]))
	}

	v0 := tmixture(out.T, cf.Unscaled, out.DFTotal, deProportion, v0Limits)
	if math.IsNaN(v0) || v0 <= 0 {
		v0 = 1 / s0sq
	}
	logPrior := math.Log(deProportion / (1 - deProportion))
	for i := 0; i < n; i++ {
		if math.IsNaN(out.T[i]) {
			continue
		}
		u2 := cf.Unscaled[i] * cf.Unscaled[i]
		r := (v0 + u2) / u2
		t2 := out.T[i] * out.T[i]
		dft := out.DFTotal[i]
		var kernel float64
		if dft > 1e6 {
			kernel = t2 * (1 - 1/r) / 2
		} else {
			kernel = (1 + dft) / 2 * math.Log((t2+dft)/(t2/r+dft))
		}
		out.LogOdds[i] = logPrior - 0.5*math.Log(r) + kernel
	}
	return out, nil
}

// fitFDist estimates the prior degrees of freedom and scale of the pooled
// variance distribution by moment matching on the log variances: the
// residual variances are modeled as s0^2 * F(df, df0) and the first two
// moments of log(s^2) identify (df0, s0^2). An infinite df0 means the
// variances are essentially identical and shrinkage collapses every gene to
// the common value.
func fitFDist(sigma2, df []float64) (df0, s0sq float64, err error) {
	var e []float64
	var triSum float64
	for i, s2 := range sigma2 {
		if df[i] <= 0 || !(s2 > 0) || math.IsInf(s2, 0) {
			continue
		}
		half := df[i] / 2
		e = append(e, math.Log(s2)-mathext.Digamma(half)+math.Log(half))
		triSum += trigamma(half)
	}
	if len(e) == 0 {
		return 0, 0, core.NewEmptyInputError("ebayes", 0)
	}
	if len(e) == 1 {
		return math.Inf(1), math.Exp(e[0]), nil
	}

	mean := 0.0
	for _, v := range e {
		mean += v
	}
	mean /= float64(len(e))

	variance := 0.0
	for _, v := range e {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(e) - 1)
	evar := variance - triSum/float64(len(e))

	if evar > 0 {
		df0 = 2 * trigammaInverse(evar)
		s0sq = math.Exp(mean + mathext.Digamma(df0/2) - math.Log(df0/2))
	} else {
		df0 = math.Inf(1)
		s0sq = math.Exp(mean)
	}
	return df0, s0sq, nil
}

// tmixture estimates the prior variance v0 of the true coefficients from the
// most extreme moderated t-statistics: assuming the top proportion/2 of
// genes are differentially expressed, each of their t-statistics is matched
// against its expected quantile under the null to back out the variance
// inflation, and the clamped estimates are averaged.
func tmixture(t, unscaled, dfTotal []float64, proportion float64, limits [2]float64) float64 {
	type entry struct {
		t  float64
		u2 float64
		df float64
	}
	var entries []entry
	for i := range t {
		if math.IsNaN(t[i]) || unscaled[i] <= 0 {
			continue
		}
		entries = append(entries, entry{
			t:  math.Abs(t[i]),
			u2: unscaled[i] * unscaled[i],
			df: dfTotal[i],
		})
	}
	n := len(entries)
	if n == 0 {
		return math.NaN()
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].t > entries[j].t })

	nTarget := int(math.Ceil(proportion / 2 * float64(n)))
	if nTarget < 1 {
		nTarget = 1
	}
	p := math.Max(float64(nTarget)/float64(n), proportion)

	sum := 0.0
	for r := 0; r < nTarget; r++ {
		en := entries[r]
		tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: en.df}
		p0 := 2 * tDist.CDF(-en.t)
		pTarget := ((float64(r)+0.5)/float64(n) - (1-p)*p0) / p
		v0 := 0.0
		if pTarget > p0 {
			qTarget := tDist.Quantile(1 - pTarget/2)
			if qTarget > 0 {
				v0 = en.u2 * ((en.t/qTarget)*(en.t/qTarget) - 1)
			}
		}
		sum += clamp(v0, limits[0], limits[1])
	}
	return sum / float64(nTarget)
}

// trigamma computes the second derivative of log Gamma via the standard
// recurrence and asymptotic series.
func trigamma(x float64) float64 {
	if x <= 0 {
		return math.NaN()
	}
	v := 0.0
	for x < 6 {
		v += 1 / (x * x)
		x++
	}
	// Asymptotic expansion for large x.
	inv := 1 / x
	inv2 := inv * inv
	v += inv * (1 + inv/2 + inv2*(1.0/6-inv2*(1.0/30-inv2*(1.0/42-inv2/30))))
	return v
}

// trigammaInverse solves trigamma(y) = x by Newton iteration with a
// numerical derivative. trigamma is strictly decreasing, so the iteration is
// monotone from the standard starting point.
func trigammaInverse(x float64) float64 {
	if !(x > 0) {
		return math.NaN()
	}
	if x > 1e7 {
		return 1 / math.Sqrt(x)
	}
	if x < 1e-6 {
		return 1 / x
	}

	y := 0.5 + 1/x
	for i := 0; i < 50; i++ {
		tri := trigamma(y)
		h := 1e-4 * y
		deriv := (trigamma(y+h) - trigamma(y-h)) / (2 * h)
		if deriv == 0 {
			break
		}
		dif := (x - tri) / deriv
		y += dif
		if math.Abs(dif)/y < 1e-8 {
			break
		}
	}
	return y
}
