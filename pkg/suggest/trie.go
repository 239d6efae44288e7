package suggest

import (
	"sort"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

// Trie is a frequency-weighted prefix index over completion words. Words are
// case-folded on insert; re-inserting a word accumulates its frequency. It is
// not safe for concurrent use; the owning engine serializes access.
type Trie struct {
	trie *patricia.Trie
	size int
}

// Suggestion pairs a completion word with its accumulated frequency.
type Suggestion struct {
	Word      string
	Frequency int
}

// NewTrie creates an empty completion trie.
func NewTrie() *Trie {
	return &Trie{trie: patricia.NewTrie()}
}

// Insert adds freq to the frequency of word, creating it if absent. Empty
// words are ignored.
func (t *Trie) Insert(word string, freq int) {
	word = strings.ToLower(word)
	if word == "" {
		return
	}

	key := patricia.Prefix(word)
	if item := t.trie.Get(key); item != nil {
		t.trie.Set(key, item.(int)+freq)
		return
	}
	t.trie.Insert(key, freq)
	t.size++
}

// SearchPrefix returns up to limit words starting with prefix, ordered by
// descending frequency with ties broken by ascending lexical order. The
// deterministic tie-break matters because suggestions are user-visible and
// insertion order does not survive rebuilds. An empty prefix returns no
// suggestions.
func (t *Trie) SearchPrefix(prefix string, limit int) []string {
	prefix = strings.ToLower(prefix)
	if prefix == "" {
		return nil
	}

	var suggestions []Suggestion
	t.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		suggestions = append(suggestions, Suggestion{
			Word:      string(p),
			Frequency: item.(int),
		})
		return nil
	})

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Frequency != suggestions[j].Frequency {
			return suggestions[i].Frequency > suggestions[j].Frequency
		}
		return suggestions[i].Word < suggestions[j].Word
	})

	if limit >= 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	words := make([]string, len(suggestions))
	for i, s := range suggestions {
		words[i] = s.Word
	}
	return words
}

// Frequency returns the accumulated frequency of word, or 0 if it was never
// inserted.
func (t *Trie) Frequency(word string) int {
	item := t.trie.Get(patricia.Prefix(strings.ToLower(word)))
	if item == nil {
		return 0
	}
	return item.(int)
}

// Remove subtracts freq from word's frequency, deleting the word when it
// reaches zero. Words indexed by several products keep their remaining
// weight.
func (t *Trie) Remove(word string, freq int) {
	word = strings.ToLower(word)
	key := patricia.Prefix(word)
	item := t.trie.Get(key)
	if item == nil {
		return
	}
	remaining := item.(int) - freq
	if remaining > 0 {
		t.trie.Set(key, remaining)
		return
	}
	t.trie.Delete(key)
	t.size--
}

// Len returns the number of distinct words in the trie.
func (t *Trie) Len() int {
	return t.size
}
