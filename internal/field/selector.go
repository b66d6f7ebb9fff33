package field

import (
	"math/rand"

	"github.com/busforge/busforge/pkg/types"
)

// TargetField picks one field of the requested variability category,
// uniformly at random among the matches. The second return is false
// when no field of that category exists for the identifier — a normal
// outcome (many identifiers have no MID_VAR or LOW_VAR fields at all),
// so callers branch on it rather than treating it as an error.
func TargetField(fields []types.Field, category types.Variability, rng *rand.Rand) (types.Field, bool) {
	var matches []types.Field
	for _, f := range fields {
		if f.Category == category {
			matches = append(matches, f)
		}
	}
	if len(matches) == 0 {
		return types.Field{}, false
	}
	return matches[rng.Intn(len(matches))], true
}
