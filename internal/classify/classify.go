// Package classify marks anomalously short quantum periods.
//
// A period is short when P(N) < 4·ln(N)/|ln λ| with λ = 2+√3, the dominant
// eigenvalue of the cat matrix. The Ns carrying a short period form the
// degenerate set that is emitted separately.
package classify

import (
	"math"

	"github.com/haricheung/catperiod/internal/types"
)

// Lambda is the dominant eigenvalue of [[2,1],[3,2]].
var Lambda = 2 + math.Sqrt(3)

// logLambda is |ln λ|, shared by every bound so all Ns use the same constant.
var logLambda = math.Abs(math.Log(Lambda))

// ShortFactor is the coefficient of ln(N)/ln λ in the short-period threshold.
const ShortFactor = 4

// Threshold returns 4·ln(n)/|ln λ|.
func Threshold(n int) float64 {
	return ShortFactor * math.Log(float64(n)) / logLambda
}

// LowerBound returns 2·ln(n)/ln λ, the curve every quantum period sits above
// except for finitely many exceptions.
func LowerBound(n int) float64 {
	return 2 * math.Log(float64(n)) / logLambda
}

// IsShort reports whether p's quantum period is below Threshold(p.N).
func IsShort(p types.Period) bool {
	return float64(p.Quantum) < Threshold(p.N)
}

// Partition splits an ascending period sequence into the three datasets.
//
// Expectations:
//   - All is the input, unchanged and in input order
//   - Short holds exactly the records for which IsShort is true, in input order
//   - DegenerateNs[i] == Short[i].N for every i
//   - Low/High are taken from the first and last record (0 when empty)
func Partition(periods []types.Period) types.Datasets {
	ds := types.Datasets{All: periods}
	if len(periods) > 0 {
		ds.Low = periods[0].N
		ds.High = periods[len(periods)-1].N
	}
	for _, p := range periods {
		if IsShort(p) {
			ds.Short = append(ds.Short, p)
			ds.DegenerateNs = append(ds.DegenerateNs, p.N)
		}
	}
	return ds
}
