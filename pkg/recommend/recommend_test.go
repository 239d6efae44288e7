package recommend

import (
	"reflect"
	"testing"
)

func TestCoViewRecommendations(t *testing.T) {
	r := NewRecommender()
	r.RecordView("A", []string{"B", "C", "B"})

	recs, reason := r.Recommend("A", 2, nil)
	if !reflect.DeepEqual(recs, []string{"B", "C"}) {
		t.Errorf("Recommend() = %v, want [B C]", recs)
	}
	if reason != ReasonCoView {
		t.Errorf("reason = %q", reason)
	}
}

func TestCoViewTieBreakByID(t *testing.T) {
	r := NewRecommender()
	r.RecordView("A", []string{"Z", "B"})

	recs, _ := r.Recommend("A", 5, nil)
	if !reflect.DeepEqual(recs, []string{"B", "Z"}) {
		t.Errorf("Equal counts must order by ascending id, got %v", recs)
	}
}

func TestRecordViewSkipsFocus(t *testing.T) {
	r := NewRecommender()
	r.RecordView("A", []string{"A", "B"})

	if c := r.CoViewCount("A", "A"); c != 0 {
		t.Errorf("Focus must not co-view itself, count %d", c)
	}
	if c := r.CoViewCount("A", "B"); c != 1 {
		t.Errorf("CoViewCount(A,B) = %d", c)
	}
}

func TestViewMatrixNotSymmetric(t *testing.T) {
	r := NewRecommender()
	r.RecordView("A", []string{"B"})

	if c := r.CoViewCount("B", "A"); c != 0 {
		t.Errorf("Reverse direction must not be counted, got %d", c)
	}
}

func TestCategoryFallback(t *testing.T) {
	r := NewRecommender()
	r.AddProductMetadata("A", []string{"Books"}, 1999)
	r.AddProductMetadata("B", []string{"Books"}, 2999)

	recs, reason := r.Recommend("A", 3, []string{"Books"})
	if !reflect.DeepEqual(recs, []string{"B"}) {
		t.Errorf("Recommend() = %v, want [B]", recs)
	}
	if reason != "similar products in Books" {
		t.Errorf("reason = %q", reason)
	}
}

func TestFallbackReasonNamesFirstContributingCategory(t *testing.T) {
	r := NewRecommender()
	r.AddProductMetadata("A", []string{"Empty", "Books"}, 1999)
	r.AddProductMetadata("B", []string{"Books"}, 2999)

	// "Empty" holds only the focus product, so "Books" contributes first.
	recs, reason := r.Recommend("A", 3, []string{"Empty", "Books"})
	if !reflect.DeepEqual(recs, []string{"B"}) {
		t.Errorf("Recommend() = %v", recs)
	}
	if reason != "similar products in Books" {
		t.Errorf("reason = %q", reason)
	}
}

func TestFallbackTopsUpCoViews(t *testing.T) {
	r := NewRecommender()
	r.RecordView("A", []string{"B"})
	r.AddProductMetadata("A", []string{"Books"}, 1999)
	r.AddProductMetadata("B", []string{"Books"}, 2999)
	r.AddProductMetadata("C", []string{"Books"}, 3999)

	recs, reason := r.Recommend("A", 3, []string{"Books"})
	if !reflect.DeepEqual(recs, []string{"B", "C"}) {
		t.Errorf("Recommend() = %v, want co-view then fallback without duplicates", recs)
	}
	if reason != "similar products in Books" {
		t.Errorf("reason = %q", reason)
	}
}

func TestRecommendEmpty(t *testing.T) {
	r := NewRecommender()

	recs, reason := r.Recommend("ghost", 5, nil)
	if len(recs) != 0 {
		t.Errorf("Recommend() = %v", recs)
	}
	if reason != "" {
		t.Errorf("reason = %q", reason)
	}
}

func TestMetadataReplaceIsClean(t *testing.T) {
	r := NewRecommender()
	r.AddProductMetadata("A", []string{"Shoes"}, 4999)
	r.AddProductMetadata("A", []string{"Boots"}, 25000)

	if n := r.CategorySize("shoes"); n != 0 {
		t.Errorf("Stale category entry survives re-index, size %d", n)
	}
	if n := r.CategorySize("boots"); n != 1 {
		t.Errorf("CategorySize(boots) = %d", n)
	}
	if ids := r.BucketProducts("0-50"); len(ids) != 0 {
		t.Errorf("Stale bucket entry %v", ids)
	}
	ids := r.BucketProducts("200-500")
	if !reflect.DeepEqual(ids, []string{"A"}) {
		t.Errorf("BucketProducts(200-500) = %v", ids)
	}
}

func TestRepeatedIndexingNoDuplicateBucketEntries(t *testing.T) {
	r := NewRecommender()
	r.AddProductMetadata("A", []string{"Shoes"}, 4999)
	r.AddProductMetadata("A", []string{"Shoes"}, 4999)
	r.AddProductMetadata("A", []string{"Shoes"}, 4999)

	if ids := r.BucketProducts("0-50"); len(ids) != 1 {
		t.Errorf("Bucket accumulated duplicates: %v", ids)
	}
}

func TestPriceBucketCutoffs(t *testing.T) {
	tests := []struct {
		cents  int64
		bucket string
	}{
		{0, "0-50"},
		{4999, "0-50"},
		{5000, "50-100"},
		{9999, "50-100"},
		{10000, "100-200"},
		{19999, "100-200"},
		{20000, "200-500"},
		{49999, "200-500"},
		{50000, "500+"},
		{1000000, "500+"},
	}
	for _, tt := range tests {
		if got := PriceBucket(tt.cents); got != tt.bucket {
			t.Errorf("PriceBucket(%d) = %q, want %q", tt.cents, got, tt.bucket)
		}
	}
}
