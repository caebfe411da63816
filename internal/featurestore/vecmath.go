package featurestore

import "math"

// topicSimilarity is the cross-feature cosine(interest_vector, embedding)
// mapped from [-1, 1] into [0, 1] via (x+1)/2. Either vector missing or
// mismatched yields the neutral raw similarity 0 (mapped to 0.5).
func topicSimilarity(a, b []float32) float64 {
	return (cosine(a, b) + 1) / 2
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	norm := math.Sqrt(normA) * math.Sqrt(normB)
	if norm == 0 {
		return 0
	}
	return dot / norm
}
