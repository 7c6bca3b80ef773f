package ml

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Vectorizer builds a TF-IDF term-vector space over a document corpus.
// Rows are L2-normalized, so cosine similarity between any two vectors in the
// space reduces to a dot product.
type Vectorizer struct {
	MaxFeatures int
	NGramMin    int
	NGramMax    int

	terms []string
	vocab map[string]int
	idf   []float64
}

// NewVectorizer returns a vectorizer configured like the production space:
// unigrams plus bigrams, capped at 5000 dimensions.
func NewVectorizer() *Vectorizer {
	return &Vectorizer{MaxFeatures: 5000, NGramMin: 1, NGramMax: 2}
}

// Fitted reports whether Fit has been called with a non-empty corpus.
func (v *Vectorizer) Fitted() bool {
	return len(v.terms) > 0
}

// NumFeatures returns the dimensionality of the fitted space.
func (v *Vectorizer) NumFeatures() int {
	return len(v.terms)
}

func (v *Vectorizer) analyze(text string) []string {
	return NGrams(Tokenize(text), v.NGramMin, v.NGramMax)
}

// FitTransform learns the vocabulary and idf weights from docs and returns
// the corpus matrix (one normalized row per document). An empty corpus is a
// no-op returning nil.
func (v *Vectorizer) FitTransform(docs []string) *mat.Dense {
	if len(docs) == 0 {
		return nil
	}

	analyzed := make([][]string, len(docs))
	totalCount := make(map[string]int)
	docFreq := make(map[string]int)
	for i, doc := range docs {
		grams := v.analyze(doc)
		analyzed[i] = grams
		seen := make(map[string]bool)
		for _, g := range grams {
			totalCount[g]++
			if !seen[g] {
				seen[g] = true
				docFreq[g]++
			}
		}
	}

	terms := make([]string, 0, len(totalCount))
	for term := range totalCount {
		terms = append(terms, term)
	}
	// Feature cap keeps the most frequent terms; ties break lexicographically
	// so the space is deterministic for a given corpus.
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if totalCount[terms[i]] != totalCount[terms[j]] {
				return totalCount[terms[i]] > totalCount[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	v.terms = terms
	v.vocab = make(map[string]int, len(terms))
	for i, term := range terms {
		v.vocab[term] = i
	}

	// Smoothed idf: ln((1+n)/(1+df)) + 1.
	n := float64(len(docs))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	matrix := mat.NewDense(len(docs), len(terms), nil)
	for i, grams := range analyzed {
		matrix.SetRow(i, v.vectorizeGrams(grams))
	}
	return matrix
}

// Transform projects a single text into the fitted space. Returns nil when
// the vectorizer was never fit.
func (v *Vectorizer) Transform(text string) []float64 {
	if !v.Fitted() {
		return nil
	}
	return v.vectorizeGrams(v.analyze(text))
}

func (v *Vectorizer) vectorizeGrams(grams []string) []float64 {
	vec := make([]float64, len(v.terms))
	for _, g := range grams {
		if col, ok := v.vocab[g]; ok {
			vec[col] += v.idf[col]
		}
	}
	if n := floats.Norm(vec, 2); n > 0 {
		floats.Scale(1/n, vec)
	}
	return vec
}

// VectorizerState is the serializable fitted state of a Vectorizer.
type VectorizerState struct {
	MaxFeatures int       `json:"max_features"`
	NGramMin    int       `json:"ngram_min"`
	NGramMax    int       `json:"ngram_max"`
	Terms       []string  `json:"terms"`
	IDF         []float64 `json:"idf"`
}

// State exports the fitted state for persistence.
func (v *Vectorizer) State() VectorizerState {
	return VectorizerState{
		MaxFeatures: v.MaxFeatures,
		NGramMin:    v.NGramMin,
		NGramMax:    v.NGramMax,
		Terms:       v.terms,
		IDF:         v.idf,
	}
}

// RestoreState rebuilds a fitted vectorizer from persisted state.
func (v *Vectorizer) RestoreState(state VectorizerState) {
	v.MaxFeatures = state.MaxFeatures
	v.NGramMin = state.NGramMin
	v.NGramMax = state.NGramMax
	v.terms = state.Terms
	v.idf = state.IDF
	v.vocab = make(map[string]int, len(state.Terms))
	for i, term := range state.Terms {
		v.vocab[term] = i
	}
}
