// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package latent

import (
	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// Matrix is a dense user-item rating matrix built fresh per factorization
// run. Rows are distinct users, columns distinct items, both in first-seen
// order for determinism. It is not persisted beyond the decomposition.
type Matrix struct {
	// Data is the rating matrix (numUsers x numItems). Zero means unobserved.
	Data [][]float64

	// UserIndex maps user ID to matrix row.
	UserIndex map[string]int

	// ItemIndex maps item ID to matrix column.
	ItemIndex map[int]int

	// IndexToUser maps matrix row to user ID.
	IndexToUser []string

	// IndexToItem maps matrix column to item ID.
	IndexToItem []int
}

// NumUsers returns the number of matrix rows.
func (m *Matrix) NumUsers() int { return len(m.IndexToUser) }

// NumItems returns the number of matrix columns.
func (m *Matrix) NumItems() int { return len(m.IndexToItem) }

// BuildMatrix builds a rating matrix from an append-only interaction log.
// Superseded records for the same (user, item) pair are resolved by
// timestamp: the most recent rating wins.
func BuildMatrix(interactions []rank.InteractionRecord) *Matrix {
	m := &Matrix{
		UserIndex: make(map[string]int),
		ItemIndex: make(map[int]int),
	}

	type cell struct {
		rating float64
		at     int64
	}
	latest := make(map[[2]int]cell, len(interactions))

	for i := range interactions {
		rec := &interactions[i]
		if rec.UserID == "" {
			continue
		}

		ui, ok := m.UserIndex[rec.UserID]
		if !ok {
			ui = len(m.IndexToUser)
			m.UserIndex[rec.UserID] = ui
			m.IndexToUser = append(m.IndexToUser, rec.UserID)
		}
		ii, ok := m.ItemIndex[rec.ItemID]
		if !ok {
			ii = len(m.IndexToItem)
			m.ItemIndex[rec.ItemID] = ii
			m.IndexToItem = append(m.IndexToItem, rec.ItemID)
		}

		key := [2]int{ui, ii}
		ts := rec.Timestamp.UnixNano()
		if prev, ok := latest[key]; !ok || ts >= prev.at {
			latest[key] = cell{rating: rec.Rating, at: ts}
		}
	}

	m.Data = make([][]float64, m.NumUsers())
	for u := range m.Data {
		m.Data[u] = make([]float64, m.NumItems())
	}
	for key, c := range latest {
		m.Data[key[0]][key[1]] = c.rating
	}

	return m
}
