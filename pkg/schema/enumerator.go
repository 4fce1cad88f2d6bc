package schema

import (
	"math/rand"
)

// Permutations computes the Cartesian product over all list-valued options.
// Each returned configuration holds one chosen value per axis; scalar options
// are not included (merge them in with Resolve). A schema with no axes yields
// exactly one empty configuration.
func (s *Schema) Permutations() []Configuration {
	axes := s.Axes()

	total := 1
	for _, axis := range axes {
		total *= len(axis.Choices)
	}

	perms := make([]Configuration, 0, total)
	indices := make([]int, len(axes))
	for {
		cfg := make(Configuration, len(axes))
		for i, axis := range axes {
			cfg[axis.Name] = axis.Choices[indices[i]]
		}
		perms = append(perms, cfg)

		// Advance the rightmost axis, carrying leftward.
		pos := len(axes) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(axes[pos].Choices) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}

	return perms
}

// Sample returns n permutations chosen uniformly without replacement. If n
// is non-positive or at least the total permutation count, all permutations
// are returned. A nil rng falls back to the global source.
func (s *Schema) Sample(n int, rng *rand.Rand) []Configuration {
	all := s.Permutations()
	if n <= 0 || n >= len(all) {
		return all
	}

	perm := make([]int, len(all))
	if rng != nil {
		copy(perm, rng.Perm(len(all)))
	} else {
		copy(perm, rand.Perm(len(all)))
	}

	sampled := make([]Configuration, 0, n)
	for _, idx := range perm[:n] {
		sampled = append(sampled, all[idx])
	}
	return sampled
}
