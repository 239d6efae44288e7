// Package recommend holds the co-view matrix and the category and
// price-bucket metadata used for "customers also viewed" suggestions.
package recommend

import (
	"sort"
	"strings"
)

// ReasonCoView is returned when recommendations come from session co-views.
const ReasonCoView = "frequently viewed together"

// Recommender accumulates pairwise co-view counts and per-category /
// per-price-bucket product membership. It is not safe for concurrent use;
// the owning engine serializes access.
type Recommender struct {
	// focus id -> (other id -> co-view count). Not symmetric by
	// construction: recording a view of A alongside B increments A->B
	// only.
	viewMatrix map[string]map[string]int

	// lowercased category -> set of product ids
	categories map[string]map[string]struct{}

	// bucket label -> product ids, rebuilt on replace so re-indexing
	// never accumulates duplicates
	priceBuckets map[string][]string
}

// NewRecommender creates an empty recommender.
func NewRecommender() *Recommender {
	return &Recommender{
		viewMatrix:   make(map[string]map[string]int),
		categories:   make(map[string]map[string]struct{}),
		priceBuckets: make(map[string][]string),
	}
}

// RecordView increments the co-view count from focus to every other product
// in the session. The reverse direction is only counted when the caller
// records it.
func (r *Recommender) RecordView(focus string, sessionProducts []string) {
	for _, other := range sessionProducts {
		if other == focus {
			continue
		}
		row := r.viewMatrix[focus]
		if row == nil {
			row = make(map[string]int)
			r.viewMatrix[focus] = row
		}
		row[other]++
	}
}

// AddProductMetadata registers the product in its category sets and price
// bucket. Existing metadata for the id is removed first, keeping the
// category index free of stale entries and the bucket sequences free of
// duplicates across re-indexing.
func (r *Recommender) AddProductMetadata(id string, categories []string, priceCents int64) {
	r.RemoveProductMetadata(id)

	for _, category := range categories {
		key := strings.ToLower(category)
		set := r.categories[key]
		if set == nil {
			set = make(map[string]struct{})
			r.categories[key] = set
		}
		set[id] = struct{}{}
	}

	bucket := PriceBucket(priceCents)
	r.priceBuckets[bucket] = append(r.priceBuckets[bucket], id)
}

// RemoveProductMetadata clears the id from every category set and bucket
// sequence. Co-view counts referring to the id are left in place; they decay
// only on reset.
func (r *Recommender) RemoveProductMetadata(id string) {
	for key, set := range r.categories {
		if _, ok := set[id]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(r.categories, key)
			}
		}
	}
	for bucket, ids := range r.priceBuckets {
		for i, pid := range ids {
			if pid == id {
				r.priceBuckets[bucket] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(r.priceBuckets[bucket]) == 0 {
			delete(r.priceBuckets, bucket)
		}
	}
}

// Recommend returns up to limit product ids for the focus product and the
// reason they were chosen. Co-viewed partners come first, ordered by
// descending count with ties broken by ascending id. When they fall short,
// the focus product's categories are walked in declared order and their
// members appended; the reason then names the first category that
// contributed. Results are deduplicated in first-seen order and never
// include the focus id.
func (r *Recommender) Recommend(focus string, limit int, focusCategories []string) ([]string, string) {
	recommendations := make([]string, 0, limit)
	seen := map[string]struct{}{focus: {}}
	reason := ""

	if row := r.viewMatrix[focus]; len(row) > 0 {
		type partner struct {
			id    string
			count int
		}
		partners := make([]partner, 0, len(row))
		for id, count := range row {
			partners = append(partners, partner{id, count})
		}
		sort.Slice(partners, func(i, j int) bool {
			if partners[i].count != partners[j].count {
				return partners[i].count > partners[j].count
			}
			return partners[i].id < partners[j].id
		})

		for _, p := range partners {
			if len(recommendations) >= limit {
				break
			}
			if _, ok := seen[p.id]; ok {
				continue
			}
			seen[p.id] = struct{}{}
			recommendations = append(recommendations, p.id)
		}
		if len(recommendations) > 0 {
			reason = ReasonCoView
		}
	}

	if len(recommendations) < limit {
		fallbackReason := ""
		for _, category := range focusCategories {
			members := r.categoryMembers(category)
			contributed := false
			for _, id := range members {
				if len(recommendations) >= limit {
					break
				}
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				recommendations = append(recommendations, id)
				contributed = true
			}
			if contributed && fallbackReason == "" {
				fallbackReason = "similar products in " + category
			}
			if len(recommendations) >= limit {
				break
			}
		}
		if fallbackReason != "" {
			reason = fallbackReason
		}
	}

	return recommendations, reason
}

// categoryMembers returns the category's members in ascending id order so
// fallback fill-ins are deterministic.
func (r *Recommender) categoryMembers(category string) []string {
	set := r.categories[strings.ToLower(category)]
	if len(set) == 0 {
		return nil
	}
	members := make([]string, 0, len(set))
	for id := range set {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// CategorySize returns the number of products in a category.
func (r *Recommender) CategorySize(category string) int {
	return len(r.categories[strings.ToLower(category)])
}

// BucketProducts returns the ids in a price bucket.
func (r *Recommender) BucketProducts(bucket string) []string {
	return r.priceBuckets[bucket]
}

// CoViewCount returns the recorded co-view count from focus to other.
func (r *Recommender) CoViewCount(focus, other string) int {
	return r.viewMatrix[focus][other]
}

// PriceBucket maps a price in cents to its whole-dollar bucket label.
func PriceBucket(priceCents int64) string {
	dollars := float64(priceCents) / 100
	switch {
	case dollars < 50:
		return "0-50"
	case dollars < 100:
		return "50-100"
	case dollars < 200:
		return "100-200"
	case dollars < 500:
		return "200-500"
	default:
		return "500+"
	}
}
