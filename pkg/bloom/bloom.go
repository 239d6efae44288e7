// Package bloom implements a fixed-capacity approximate-membership filter
// for product IDs. False positives possible, false negatives impossible.
package bloom

import (
	"hash/fnv"
	"math"
)

// Defaults sized for the catalog the engine targets: ~0.1% false positives
// at one hundred thousand products.
const (
	DefaultCapacity  = 100000
	DefaultErrorRate = 0.001
)

// Filter is a bit-array existence filter over string keys.
type Filter struct {
	bits      []byte
	size      uint64 // size in bits
	numHashes int
	capacity  int
	count     int
}

// New creates a filter sized for the expected number of items at the target
// false-positive rate. Bit count m = -n*ln(p)/ln(2)^2, hash count
// k = (m/n)*ln(2).
func New(capacity int, errorRate float64) *Filter {
	if capacity < 1 {
		capacity = 1
	}
	if errorRate <= 0 || errorRate >= 1 {
		errorRate = DefaultErrorRate
	}

	ln2 := math.Ln2
	m := math.Ceil(-float64(capacity) * math.Log(errorRate) / (ln2 * ln2))
	k := int(math.Round(m / float64(capacity) * ln2))
	if k < 1 {
		k = 1
	}

	size := uint64(m)
	return &Filter{
		bits:      make([]byte, (size+7)/8),
		size:      size,
		numHashes: k,
		capacity:  capacity,
	}
}

// Add registers key as a member.
func (f *Filter) Add(key string) {
	for i := 0; i < f.numHashes; i++ {
		bit := f.hash(key, i) % f.size
		f.bits[bit/8] |= 1 << (bit % 8)
	}
	f.count++
}

// Contains reports whether key might be a member. It returns true for every
// key ever added; for other keys it may return true with probability bounded
// by the configured error rate.
func (f *Filter) Contains(key string) bool {
	for i := 0; i < f.numHashes; i++ {
		bit := f.hash(key, i) % f.size
		if f.bits[bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// hash generates the i-th hash value for key as h(i) = h1 + i*h2(i), where h1
// hashes the key and h2(i) hashes the key followed by the byte i.
func (f *Filter) hash(key string, i int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	h1 := h.Sum64()

	h.Reset()
	h.Write([]byte(key))
	h.Write([]byte{byte(i)})
	h2 := h.Sum64()

	return h1 + uint64(i)*h2
}

// Capacity returns the item count the filter was sized for.
func (f *Filter) Capacity() int {
	return f.capacity
}

// Count returns the number of Add calls.
func (f *Filter) Count() int {
	return f.count
}

// Stats returns filter statistics including the fill ratio and an estimated
// false-positive rate at the current fill.
func (f *Filter) Stats() map[string]interface{} {
	setBits := 0
	for _, b := range f.bits {
		for i := 0; i < 8; i++ {
			if b&(1<<i) != 0 {
				setBits++
			}
		}
	}

	fillRatio := float64(setBits) / float64(f.size)
	fpr := math.Pow(fillRatio, float64(f.numHashes))

	return map[string]interface{}{
		"capacity":      f.capacity,
		"count":         f.count,
		"size_bits":     f.size,
		"num_hashes":    f.numHashes,
		"fill_ratio":    fillRatio,
		"estimated_fpr": fpr,
	}
}
