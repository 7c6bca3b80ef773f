package ml

import (
	"crypto/sha256"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// TextEmbedder produces fixed-dimension sentence embeddings. The embedding
// model is an optional capability: availability is probed once on first use,
// and an embedder whose model file is missing stays permanently inert.
//
// Inference itself is a deterministic content-hash feature mix rather than a
// real transformer forward pass; vectors are L2-normalized so dot products
// are cosine similarities.
type TextEmbedder struct {
	modelPath  string
	dimensions int
	logger     *logrus.Logger

	probeOnce sync.Once
	available bool
}

func NewTextEmbedder(modelPath string, dimensions int, logger *logrus.Logger) *TextEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &TextEmbedder{
		modelPath:  modelPath,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Available probes the model file once and reports whether the embedder can
// produce vectors. Construction never fails; only this probe can.
func (e *TextEmbedder) Available() bool {
	e.probeOnce.Do(func() {
		if e.modelPath == "" {
			return
		}
		if _, err := os.Stat(e.modelPath); err != nil {
			e.logger.WithFields(logrus.Fields{
				"model_path": e.modelPath,
			}).Debug("Embedding model unavailable, semantic scoring disabled")
			return
		}
		e.available = true
	})
	return e.available
}

// Dimensions returns the embedding width.
func (e *TextEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed returns a normalized embedding for text, or nil when the model is
// unavailable or the text is empty.
func (e *TextEmbedder) Embed(text string) []float64 {
	if !e.Available() || text == "" {
		return nil
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	hash := sha256.Sum256([]byte(text))
	textLength := float64(len(text))
	tokenCount := float64(len(tokens))
	avgTokenLength := textLength / tokenCount

	vec := make([]float64, e.dimensions)
	for i := range vec {
		// Content hash dominates the signal so that identical texts map to
		// identical vectors and unrelated texts decorrelate.
		hashComponent := (float64(hash[i%len(hash)])/255.0 - 0.5) * 0.5
		tokenComponent := tokenFeature(tokens, i) * 0.3
		lengthComponent := (avgTokenLength/10.0 - 0.5) * 0.1
		posComponent := (float64(i)/float64(e.dimensions) - 0.5) * 0.1
		vec[i] = hashComponent + tokenComponent + lengthComponent + posComponent
	}

	if n := floats.Norm(vec, 2); n > 0 {
		floats.Scale(1/n, vec)
	}
	return vec
}

// EmbedBatch embeds each text, keeping positional alignment; texts that
// cannot be embedded yield nil rows.
func (e *TextEmbedder) EmbedBatch(texts []string) [][]float64 {
	if !e.Available() {
		return nil
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = e.Embed(t)
	}
	return out
}

func tokenFeature(tokens []string, dimension int) float64 {
	switch dimension % 4 {
	case 0: // token at a hash-selected position
		tok := tokens[dimension/4%len(tokens)]
		h := sha256.Sum256([]byte(tok))
		return float64(h[0])/255.0 - 0.5
	case 1: // average token length
		total := 0
		for _, tok := range tokens {
			total += len(tok)
		}
		return float64(total)/float64(len(tokens))/10.0 - 0.5
	case 2: // token diversity
		unique := make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			unique[tok] = true
		}
		return float64(len(unique))/float64(len(tokens)) - 0.5
	default: // vowel density
		vowels, chars := 0, 0
		for _, tok := range tokens {
			for _, r := range tok {
				chars++
				switch r {
				case 'a', 'e', 'i', 'o', 'u':
					vowels++
				}
			}
		}
		if chars == 0 {
			return 0
		}
		return float64(vowels)/float64(chars) - 0.5
	}
}
