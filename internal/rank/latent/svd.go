// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package latent

import (
	"math"
	"sort"
)

const (
	// jacobiMaxSweeps bounds the eigenvalue iteration.
	jacobiMaxSweeps = 100

	// jacobiTolerance is the off-diagonal convergence threshold.
	jacobiTolerance = 1e-12

	// rankTolerance is the relative singular-value cutoff below which a
	// factor is treated as numerically zero.
	rankTolerance = 1e-9
)

// Factorize computes the truncated SVD of the rating matrix, keeping the
// k largest singular values (clipped to the numerical rank). It returns
// nil when the interaction set spans fewer than two users or two items;
// callers must treat a nil model as "no collaborative signal available",
// not an error.
func Factorize(m *Matrix, k int) *Model {
	numUsers := m.NumUsers()
	numItems := m.NumItems()
	if numUsers < 2 || numItems < 2 {
		return nil
	}
	if k < 1 {
		k = 1
	}

	// Eigen-decompose the Gram matrix A'A = V * S^2 * V'.
	gram := gramMatrix(m.Data, numItems)
	eigenvalues, eigenvectors := jacobiEigen(gram)

	// Order factors by descending singular value.
	order := make([]int, numItems)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return eigenvalues[order[a]] > eigenvalues[order[b]]
	})

	singular := make([]float64, 0, numItems)
	for _, idx := range order {
		ev := eigenvalues[idx]
		if ev < 0 {
			ev = 0
		}
		singular = append(singular, math.Sqrt(ev))
	}

	// Numerical rank: singular values above a relative cutoff.
	rank := 0
	cutoff := rankTolerance * singular[0]
	for _, s := range singular {
		if s > cutoff {
			rank++
		}
	}
	if rank == 0 {
		return nil
	}
	if k > rank {
		k = rank
	}

	// Item factors V: the top-k eigenvector columns, reordered.
	itemFactors := make([][]float64, numItems)
	for i := 0; i < numItems; i++ {
		itemFactors[i] = make([]float64, k)
		for f := 0; f < k; f++ {
			itemFactors[i][f] = eigenvectors[i][order[f]]
		}
	}

	// User factors U = A * V * S^-1.
	userFactors := make([][]float64, numUsers)
	for u := 0; u < numUsers; u++ {
		userFactors[u] = make([]float64, k)
		row := m.Data[u]
		for f := 0; f < k; f++ {
			var dot float64
			for i := 0; i < numItems; i++ {
				dot += row[i] * itemFactors[i][f]
			}
			userFactors[u][f] = dot / singular[f]
		}
	}

	// Confidence: the fraction of each item's sigma-weighted loading mass
	// captured by the kept factors, against all factors up to full rank.
	confidence := make([]float64, numItems)
	for i := 0; i < numItems; i++ {
		var kept, total float64
		for f := 0; f < rank; f++ {
			loading := singular[f] * eigenvectors[i][order[f]]
			mass := loading * loading
			total += mass
			if f < k {
				kept += mass
			}
		}
		if total > 0 {
			confidence[i] = kept / total
		}
	}

	observed := make(map[string]map[int]struct{}, numUsers)
	for u := 0; u < numUsers; u++ {
		set := make(map[int]struct{})
		for i, r := range m.Data[u] {
			if r != 0 {
				set[m.IndexToItem[i]] = struct{}{}
			}
		}
		observed[m.IndexToUser[u]] = set
	}

	return &Model{
		UserFactors:    userFactors,
		SingularValues: singular[:k],
		ItemFactors:    itemFactors,
		Rank:           k,
		UserIndex:      cloneUserIndex(m.UserIndex),
		ItemIndex:      cloneItemIndex(m.ItemIndex),
		IndexToItem:    append([]int(nil), m.IndexToItem...),
		Confidence:     confidence,
		observed:       observed,
	}
}

// gramMatrix computes A'A for the rating matrix.
func gramMatrix(data [][]float64, numItems int) [][]float64 {
	gram := make([][]float64, numItems)
	for i := range gram {
		gram[i] = make([]float64, numItems)
	}
	for _, row := range data {
		for i := 0; i < numItems; i++ {
			if row[i] == 0 {
				continue
			}
			for j := i; j < numItems; j++ {
				gram[i][j] += row[i] * row[j]
			}
		}
	}
	for i := 0; i < numItems; i++ {
		for j := 0; j < i; j++ {
			gram[i][j] = gram[j][i]
		}
	}
	return gram
}

// jacobiEigen diagonalizes a symmetric matrix with cyclic Jacobi rotations.
// Returns eigenvalues and the eigenvector matrix (columns are eigenvectors).
// The input matrix is modified in place.
func jacobiEigen(a [][]float64) ([]float64, [][]float64) {
	n := len(a)
	v := make([][]float64, n)
	for i := range v {
		v[i] = make([]float64, n)
		v[i][i] = 1.0
	}

	for sweep := 0; sweep < jacobiMaxSweeps; sweep++ {
		off := offDiagonalNorm(a)
		if off < jacobiTolerance {
			break
		}

		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(a[p][q]) < jacobiTolerance {
					continue
				}
				rotate(a, v, p, q)
			}
		}
	}

	eigenvalues := make([]float64, n)
	for i := 0; i < n; i++ {
		eigenvalues[i] = a[i][i]
	}
	return eigenvalues, v
}

// rotate applies one Jacobi rotation zeroing a[p][q].
func rotate(a, v [][]float64, p, q int) {
	n := len(a)

	theta := (a[q][q] - a[p][p]) / (2.0 * a[p][q])
	t := 1.0 / (math.Abs(theta) + math.Sqrt(theta*theta+1.0))
	if theta < 0 {
		t = -t
	}
	c := 1.0 / math.Sqrt(t*t+1.0)
	s := t * c

	app, aqq, apq := a[p][p], a[q][q], a[p][q]
	a[p][p] = c*c*app - 2.0*s*c*apq + s*s*aqq
	a[q][q] = s*s*app + 2.0*s*c*apq + c*c*aqq
	a[p][q] = 0
	a[q][p] = 0

	for i := 0; i < n; i++ {
		if i == p || i == q {
			continue
		}
		aip, aiq := a[i][p], a[i][q]
		a[i][p] = c*aip - s*aiq
		a[p][i] = a[i][p]
		a[i][q] = s*aip + c*aiq
		a[q][i] = a[i][q]
	}

	for i := 0; i < n; i++ {
		vip, viq := v[i][p], v[i][q]
		v[i][p] = c*vip - s*viq
		v[i][q] = s*vip + c*viq
	}
}

// offDiagonalNorm sums the absolute off-diagonal mass of a symmetric matrix.
func offDiagonalNorm(a [][]float64) float64 {
	var sum float64
	n := len(a)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			sum += math.Abs(a[i][j])
		}
	}
	return sum
}

func cloneUserIndex(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, val := range in {
		out[k] = val
	}
	return out
}

func cloneItemIndex(in map[int]int) map[int]int {
	out := make(map[int]int, len(in))
	for k, val := range in {
		out[k] = val
	}
	return out
}
