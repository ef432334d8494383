package transform

import (
	"sort"

	"heartetl/internal/schema"
	"heartetl/pkg/records"
)

// medianInt64 returns the median of the non-missing int64 values in a column.
// Even counts use the integer midpoint so imputed integers stay integers.
func medianInt64(rows []records.Record, col string) (int64, bool) {
	vals := make([]int64, 0, len(rows))
	for _, r := range rows {
		if v, ok := r[col].(int64); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	mid := len(vals) / 2
	if len(vals)%2 == 0 {
		return (vals[mid-1] + vals[mid]) / 2, true
	}
	return vals[mid], true
}

// medianFloat64 returns the median of the non-missing float64 values in a
// column, averaging the two middle values for even counts.
func medianFloat64(rows []records.Record, col string) (float64, bool) {
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v, ok := r[col].(float64); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 0 {
		return (vals[mid-1] + vals[mid]) / 2, true
	}
	return vals[mid], true
}

// mode returns the most frequent non-missing value in a column. Ties break
// by first occurrence in original row order.
func mode(rows []records.Record, col string) (any, bool) {
	counts := map[any]int{}
	firstIdx := map[any]int{}
	for i, r := range rows {
		v := r[col]
		if v == nil {
			continue
		}
		if _, seen := counts[v]; !seen {
			firstIdx[v] = i
		}
		counts[v]++
	}
	if len(counts) == 0 {
		return nil, false
	}
	var best any
	bestCount, bestFirst := -1, -1
	for v, n := range counts {
		if n > bestCount || (n == bestCount && firstIdx[v] < bestFirst) {
			best, bestCount, bestFirst = v, n, firstIdx[v]
		}
	}
	return best, true
}

// imputeValue picks the replacement for a column's missing values: median for
// numeric kinds, mode for categorical and everything else.
func imputeValue(kind schema.Kind, rows []records.Record, col string) (any, bool) {
	switch kind {
	case schema.KindInteger:
		if v, ok := medianInt64(rows, col); ok {
			return v, true
		}
		return nil, false
	case schema.KindReal:
		if v, ok := medianFloat64(rows, col); ok {
			return v, true
		}
		return nil, false
	default:
		return mode(rows, col)
	}
}
