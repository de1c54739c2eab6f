package trendtap

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// TFIDFVectorizer turns short texts into l2-normalised TF-IDF rows
type TFIDFVectorizer struct {
	MaxNGram    int // 1 for unigrams, 2 for unigrams+bigrams
	MaxFeatures int
	StopWords   map[string]bool

	Vocabulary []string
}

// FitTransform learns the vocabulary of docs and returns one row per doc.
// When no term survives tokenisation the matrix has a single all-zero column.
func (v *TFIDFVectorizer) FitTransform(docs []string) *mat.Dense {
	maxN := v.MaxNGram
	if maxN < 1 {
		maxN = 1
	}

	docTerms := make([]map[string]int, len(docs))
	totals := make(map[string]int)
	docFreq := make(map[string]int)
	for i, doc := range docs {
		counts := make(map[string]int)
		for _, term := range v.analyze(doc, maxN) {
			counts[term]++
		}
		for term, c := range counts {
			totals[term] += c
			docFreq[term]++
		}
		docTerms[i] = counts
	}

	vocab := make([]string, 0, len(totals))
	for term := range totals {
		vocab = append(vocab, term)
	}
	if v.MaxFeatures > 0 && len(vocab) > v.MaxFeatures {
		sort.Slice(vocab, func(i, j int) bool {
			if totals[vocab[i]] != totals[vocab[j]] {
				return totals[vocab[i]] > totals[vocab[j]]
			}
			return vocab[i] < vocab[j]
		})
		vocab = vocab[:v.MaxFeatures]
	}
	sort.Strings(vocab)
	v.Vocabulary = vocab

	cols := len(vocab)
	if cols == 0 {
		return mat.NewDense(len(docs), 1, nil)
	}

	index := make(map[string]int, cols)
	idf := make([]float64, cols)
	n := float64(len(docs))
	for j, term := range vocab {
		index[term] = j
		idf[j] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	data := mat.NewDense(len(docs), cols, nil)
	for i, counts := range docTerms {
		row := data.RawRowView(i)
		for term, c := range counts {
			if j, ok := index[term]; ok {
				row[j] = float64(c) * idf[j]
			}
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	return data
}

func (v *TFIDFVectorizer) analyze(doc string, maxN int) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(doc), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if !v.StopWords[t] {
			tokens = append(tokens, t)
		}
	}

	terms := make([]string, 0, len(tokens)*maxN)
	for n := 1; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

func vectorizeKeywords(prepared []PreparedKeyword, maxNGram int) *mat.Dense {
	docs := make([]string, len(prepared))
	for i, p := range prepared {
		docs[i] = p.Text
	}
	v := &TFIDFVectorizer{MaxNGram: maxNGram, MaxFeatures: 1000, StopWords: englishStopWords}
	return v.FitTransform(docs)
}
