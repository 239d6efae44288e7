package text

import (
	"math"
	"sort"
)

// InvertedIndex maps tokens to the set of documents containing them and
// scores searches with a length-normalized TF-IDF. It is not safe for
// concurrent use; the owning engine serializes access.
type InvertedIndex struct {
	// token -> set of document IDs
	postings map[string]map[string]struct{}

	// token -> number of documents containing it; always equals
	// len(postings[token]) for live tokens
	docFreq map[string]int

	// document ID -> total token count of its searchable text
	docLengths map[string]int

	// document ID -> insertion sequence, the stable tie-breaker for
	// equal scores
	docSeq map[string]int
	nextSeq int

	totalDocs int

	analyzer *Analyzer
}

// ScoredDoc is a document ID with its search score.
type ScoredDoc struct {
	DocID string
	Score float64
}

// NewInvertedIndex creates an empty inverted index.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		postings:   make(map[string]map[string]struct{}),
		docFreq:    make(map[string]int),
		docLengths: make(map[string]int),
		docSeq:     make(map[string]int),
		analyzer:   NewAnalyzer(),
	}
}

// AddDocument indexes text plus one synthetic token per category under docID.
// Re-adding an existing document first removes it, so the operation is
// replace-safe and the index never holds postings from two generations of
// the same document.
func (idx *InvertedIndex) AddDocument(docID, text string, categories []string) {
	if _, exists := idx.docLengths[docID]; exists {
		idx.RemoveDocument(docID)
	}

	tokens := idx.analyzer.Tokenize(text)
	for _, cat := range categories {
		tokens = append(tokens, CategoryToken(cat))
	}

	idx.docLengths[docID] = len(tokens)
	idx.docSeq[docID] = idx.nextSeq
	idx.nextSeq++

	for _, token := range tokens {
		set := idx.postings[token]
		if set == nil {
			set = make(map[string]struct{})
			idx.postings[token] = set
		}
		if _, ok := set[docID]; !ok {
			set[docID] = struct{}{}
			idx.docFreq[token]++
		}
	}

	idx.totalDocs = len(idx.docLengths)
}

// RemoveDocument deletes docID from every posting list, dropping tokens whose
// lists become empty.
func (idx *InvertedIndex) RemoveDocument(docID string) {
	if _, exists := idx.docLengths[docID]; !exists {
		return
	}

	for token, set := range idx.postings {
		if _, ok := set[docID]; ok {
			delete(set, docID)
			idx.docFreq[token]--
			if len(set) == 0 {
				delete(idx.postings, token)
				delete(idx.docFreq, token)
			}
		}
	}

	delete(idx.docLengths, docID)
	delete(idx.docSeq, docID)
	idx.totalDocs = len(idx.docLengths)
}

// Search scores documents against the query and returns up to limit results
// in descending score order. Equal scores order by document insertion
// sequence. Each query word also matches the synthetic token of the category
// with the same name. Query tokens absent from the index contribute nothing.
func (idx *InvertedIndex) Search(query string, limit int) []ScoredDoc {
	tokens := idx.analyzer.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	docScores := make(map[string]float64)

	for _, token := range tokens {
		for _, key := range []string{token, CategoryToken(token)} {
			set, ok := idx.postings[key]
			if !ok {
				continue
			}

			df := idx.docFreq[key]
			idf := math.Log(float64(idx.totalDocs) / float64(df))

			for docID := range set {
				length := idx.docLengths[docID]
				if length == 0 {
					length = 1
				}
				// Length-normalized presence weight, not a true term
				// frequency.
				tf := 1.0 / math.Sqrt(float64(length))
				docScores[docID] += tf * idf
			}
		}
	}

	results := make([]ScoredDoc, 0, len(docScores))
	for docID, score := range docScores {
		results = append(results, ScoredDoc{DocID: docID, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return idx.docSeq[results[i].DocID] < idx.docSeq[results[j].DocID]
	})

	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Contains reports whether docID is indexed.
func (idx *InvertedIndex) Contains(docID string) bool {
	_, ok := idx.docLengths[docID]
	return ok
}

// TotalDocs returns the number of indexed documents.
func (idx *InvertedIndex) TotalDocs() int {
	return idx.totalDocs
}

// DocFreq returns the number of documents containing token.
func (idx *InvertedIndex) DocFreq(token string) int {
	return idx.docFreq[token]
}

// PostingCount returns the posting list size for token. It always equals
// DocFreq for live tokens.
func (idx *InvertedIndex) PostingCount(token string) int {
	return len(idx.postings[token])
}

// DocLength returns the recorded token count for docID.
func (idx *InvertedIndex) DocLength(docID string) (int, bool) {
	n, ok := idx.docLengths[docID]
	return n, ok
}

// TermCount returns the number of distinct tokens in the index.
func (idx *InvertedIndex) TermCount() int {
	return len(idx.postings)
}

// Stats returns statistics about the inverted index.
func (idx *InvertedIndex) Stats() map[string]interface{} {
	return map[string]interface{}{
		"total_documents": idx.totalDocs,
		"total_terms":     len(idx.postings),
	}
}
