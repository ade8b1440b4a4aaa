package analysis

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"geodiff/domain/core"
	"geodiff/domain/expr"
)

// PCAResult holds the first two principal-component scores per sample and
// the fraction of total variance each component explains.
type PCAResult struct {
	SampleIDs    []string
	Scores       [][2]float64
	VarExplained [2]float64
}

// PCA projects the samples onto their first two principal components.
// Samples are the observations, genes the features; columns are centered on
// the gene mean and gaps are imputed with that mean before the SVD.
func PCA(m *expr.Matrix) (*PCAResult, error) {
	nGenes, nSamples := m.Dims()
	if nGenes == 0 || nSamples < 2 {
		return nil, core.NewSchemaError("pca",
			"need at least one gene and two samples")
	}

	// samples x genes, centered per gene.
	data := mat.NewDense(nSamples, nGenes, nil)
	for i := 0; i < nGenes; i++ {
		row := m.Row(i)
		mean, n := 0.0, 0
		for _, v := range row {
			if !math.IsNaN(v) {
				mean += v
				n++
			}
		}
		if n == 0 {
			continue // all-gap gene contributes nothing after centering
		}
		mean /= float64(n)
		for j, v := range row {
			if math.IsNaN(v) {
				data.Set(j, i, 0)
			} else {
				data.Set(j, i, v-mean)
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(data, mat.SVDThin); !ok {
		return nil, core.NewSchemaError("pca", "SVD did not converge")
	}
	var u mat.Dense
	svd.UTo(&u)
	sv := svd.Values(nil)

	total := 0.0
	for _, s := range sv {
		total += s * s
	}

	out := &PCAResult{
		SampleIDs: m.Samples,
		Scores:    make([][2]float64, nSamples),
	}
	for k := 0; k < 2 && k < len(sv); k++ {
		if total > 0 {
			out.VarExplained[k] = sv[k] * sv[k] / total
		}
		for j := 0; j < nSamples; j++ {
			out.Scores[j][k] = u.At(j, k) * sv[k]
		}
	}
	return out, nil
}
