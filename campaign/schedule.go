package campaign

import "math/rand/v2"

// Pair is one unit of discovery work: an industry searched in a location.
type Pair struct {
	Industry string `json:"industry"`
	Location string `json:"location"`
}

// BuildSchedule expands the configured industries into a weighted multiset
// per location (each industry appears Weights[industry] times, default 1),
// shuffles each per-location ordering, then shuffles the combined pair
// list. The result has len(Locations) x sum(weights) entries.
//
// The RNG is injected so tests can seed it and assert a reproducible
// order; production callers seed from entropy.
func BuildSchedule(cfg Config, rng *rand.Rand) []Pair {
	perLocation := make([]string, 0, len(cfg.Industries))
	for _, ind := range cfg.Industries {
		weight, ok := cfg.Weights[ind]
		if !ok {
			weight = 1
		}
		for range weight {
			perLocation = append(perLocation, ind)
		}
	}

	pairs := make([]Pair, 0, len(perLocation)*len(cfg.Locations))
	for _, loc := range cfg.Locations {
		inds := append([]string(nil), perLocation...)
		rng.Shuffle(len(inds), func(i, j int) {
			inds[i], inds[j] = inds[j], inds[i]
		})
		for _, ind := range inds {
			pairs = append(pairs, Pair{Industry: ind, Location: loc})
		}
	}

	rng.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})
	return pairs
}
