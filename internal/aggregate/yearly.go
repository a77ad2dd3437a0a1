package aggregate

import (
	"sort"
	"strconv"

	"github.com/wesm/insightview/internal/insight"
)

// YearTotal is the summed intensity of one end year along with
// the number of records that contributed to the sum.
type YearTotal struct {
	Year  insight.Year `json:"year"`
	Sum   float64      `json:"sum"`
	Count int          `json:"count"`
}

// Average returns Sum / Count.
func (y YearTotal) Average() float64 {
	if y.Count == 0 {
		return 0
	}
	return y.Sum / float64(y.Count)
}

// YearlyIntensity sums intensity per end year. Years are ordered
// numerically ascending (so "2016" sorts before "2100") and the
// first fifteen are kept. Years with the same numeric value share
// one entry under the first spelling seen, so 2020, "2020" and
// 2020.0 are one year. Years that are not numbers sort last in
// first-seen order.
func YearlyIntensity(recs []insight.Record) []YearTotal {
	index := make(map[string]int)
	out := make([]YearTotal, 0)
	for _, r := range recs {
		year, ok := r.EndYearValue()
		if !ok {
			continue
		}
		v, ok := r.IntensityValue()
		if !ok {
			continue
		}
		key := yearKey(year)
		i, seen := index[key]
		if !seen {
			i = len(out)
			index[key] = i
			out = append(out, YearTotal{Year: year})
		}
		out[i].Sum += v
		out[i].Count++
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, aok := out[i].Year.Number()
		b, bok := out[j].Year.Number()
		switch {
		case aok && bok:
			return a < b
		case aok:
			return true
		default:
			return false
		}
	})
	return firstN(out, YearCap)
}

func yearKey(y insight.Year) string {
	if v, ok := y.Number(); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return y.String()
}
