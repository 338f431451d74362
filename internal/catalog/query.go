// Package catalog filters and orders post listings in memory.
package catalog

import (
	"sort"
	"strings"
	"time"

	"whereismypet/internal/models"
)

// SortOrder selects the direction of the created_at ordering.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// ParseSortOrder normalises user input. Anything unrecognised sorts newest first.
func ParseSortOrder(raw string) SortOrder {
	if SortOrder(strings.ToLower(strings.TrimSpace(raw))) == SortOldest {
		return SortOldest
	}
	return SortNewest
}

// Params narrows and orders a listing. Empty fields do not filter.
type Params struct {
	Search       string
	City         string
	District     string
	Neighborhood string
	Sort         SortOrder
}

// epoch stands in for posts that never got a timestamp.
var epoch = time.Unix(0, 0).UTC()

// Apply runs search, then location narrowing, then a stable sort on
// created_at. The input is left untouched and the result is never nil.
func Apply(posts []models.Post, p Params) []models.Post {
	out := make([]models.Post, 0, len(posts))

	term := strings.ToLower(p.Search)
	for _, post := range posts {
		if term != "" && !matchesSearch(post, term) {
			continue
		}
		if !matchesLocation(post.Location, p) {
			continue
		}
		out = append(out, post)
	}

	newestFirst := p.Sort != SortOldest
	sort.SliceStable(out, func(i, j int) bool {
		a, b := sortKey(out[i]), sortKey(out[j])
		if newestFirst {
			return a.After(b)
		}
		return a.Before(b)
	})
	return out
}

func matchesSearch(post models.Post, term string) bool {
	return strings.Contains(strings.ToLower(post.Title), term) ||
		strings.Contains(strings.ToLower(post.Description), term)
}

// Each level is checked on its own; a city filter never implies a district.
func matchesLocation(loc models.Location, p Params) bool {
	if p.City != "" && loc.City != p.City {
		return false
	}
	if p.District != "" && loc.District != p.District {
		return false
	}
	if p.Neighborhood != "" && loc.Neighborhood != p.Neighborhood {
		return false
	}
	return true
}

func sortKey(post models.Post) time.Time {
	if post.CreatedAt.IsZero() {
		return epoch
	}
	return post.CreatedAt
}
