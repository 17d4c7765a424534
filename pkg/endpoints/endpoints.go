// Package endpoints holds the token-issuing endpoint set and the
// load-spreading exploration order used by credential fetches.
package endpoints

import (
	"math/rand"
)

// DefaultEndpoints is the built-in set of interchangeable token-issuing
// services. Any endpoint answering HTTP 200 with a token field is acceptable.
var DefaultEndpoints = []string{
	"https://jwtxthug.up.railway.app/token",
	"https://jwt-aditya.vercel.app/token",
}

// Order returns a uniformly random permutation of the given endpoint set.
// A fresh permutation is drawn on every call so repeated failures on one
// endpoint do not concentrate load there across a whole refresh batch. No
// endpoint is ever excluded based on past failures.
func Order(set []string) []string {
	out := make([]string, len(set))
	copy(out, set)

	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	return out
}
