// Package retrieval scores stored chunks against a query vector by cosine similarity.
package retrieval

import "math"

// CosineSimilarity returns dot(a,b) / (|a|*|b|). Defined as 0 (never NaN, never
// an error) when the vectors differ in length or either magnitude is zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// similarityWithQueryMagnitude scores chunk vector b against query a whose
// magnitude was computed once by the caller. Same definition as
// CosineSimilarity, avoiding the repeated query norm on every comparison.
func similarityWithQueryMagnitude(a []float64, aMag float64, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 || aMag == 0 {
		return 0
	}
	var dot, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magB += b[i] * b[i]
	}
	if magB == 0 {
		return 0
	}
	return dot / (aMag * math.Sqrt(magB))
}
