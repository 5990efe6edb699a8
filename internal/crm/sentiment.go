package crm

import (
	"math"
	"strings"
)

// Sentiment is the polarity of a message
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// Analysis is the scored polarity of a text
type Analysis struct {
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
}

// Confidence bounds
const (
	NeutralConfidence = 0.6
	MaxConfidence     = 0.95
)

// Keywords are matched as substrings of each lowercased word, so "adorei"
// also scores "adoreii" and "problem" scores "problems".
var (
	positiveWords = []string{
		"ótimo", "otimo", "excelente", "obrigad", "perfeito", "adorei", "recomendo", "satisfeito",
		"great", "excellent", "thank", "perfect", "love", "recommend", "satisfied",
	}
	negativeWords = []string{
		"ruim", "péssimo", "pessimo", "problema", "erro", "insatisfeito", "cancelar", "reclamação", "reclamacao",
		"bad", "terrible", "problem", "error", "unsatisfied", "dissatisfied", "cancel", "complaint",
	}
)

// Analyze scores text by keyword. A word holding a negative keyword
// subtracts one, otherwise a word holding a positive keyword adds one, so
// "insatisfeito" counts as negative. A non-zero score maps to 0.6
// confidence plus 0.1 per point, capped at 0.95.
func Analyze(text string) Analysis {
	score := 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		switch {
		case containsAny(word, negativeWords):
			score--
		case containsAny(word, positiveWords):
			score++
		}
	}

	if score == 0 {
		return Analysis{Sentiment: Neutral, Confidence: NeutralConfidence}
	}
	sentiment := Positive
	if score < 0 {
		sentiment = Negative
	}
	confidence := math.Min(0.6+0.1*math.Abs(float64(score)), MaxConfidence)
	return Analysis{Sentiment: sentiment, Confidence: math.Round(confidence*100) / 100}
}

func containsAny(word string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(word, k) {
			return true
		}
	}
	return false
}

// SentimentSummary counts scored inbound messages per polarity
type SentimentSummary struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

func (s *SentimentSummary) add(v Sentiment) {
	switch v {
	case Positive:
		s.Positive++
	case Negative:
		s.Negative++
	case Neutral:
		s.Neutral++
	}
}

// Total is the number of counted messages
func (s SentimentSummary) Total() int {
	return s.Positive + s.Negative + s.Neutral
}
