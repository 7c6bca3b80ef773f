package ml

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Tokenize normalizes text (NFKC, lower case) and splits it into word tokens.
// Punctuation is treated as a separator and dropped.
func Tokenize(text string) []string {
	text = norm.NFKC.String(text)
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	var tokens []string
	for _, w := range nonWordRegex.Split(text, -1) {
		if w != "" {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// NGrams expands tokens into all n-grams for n in [minN, maxN], joined with a
// single space. With minN=1, maxN=2 this yields unigrams plus bigrams.
func NGrams(tokens []string, minN, maxN int) []string {
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}

	var grams []string
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}
