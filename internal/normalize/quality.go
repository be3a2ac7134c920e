package normalize

import "docscan/pkg/models"

// DefaultRescanThreshold is the mean token confidence below which a re-scan is advised.
const DefaultRescanThreshold = 0.6

// MeanConfidence returns the average token confidence, or 0 for no tokens.
func MeanConfidence(tokens []models.Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tokens {
		sum += t.Confidence
	}
	return sum / float64(len(tokens))
}

// NeedsRescan reports whether the OCR quality is too poor to trust any extraction.
// It is advisory; extraction still runs.
func NeedsRescan(tokens []models.Token, threshold float64) bool {
	return MeanConfidence(tokens) < threshold
}

// CountBySource tallies tokens per source kind.
func CountBySource(tokens []models.Token) map[models.SourceKind]int {
	counts := make(map[models.SourceKind]int, 3)
	for _, t := range tokens {
		counts[t.Source]++
	}
	return counts
}
