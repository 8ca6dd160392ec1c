package encode

import (
	"fmt"
	"strings"
)

// Filter selects the PNG scanline filter.
type Filter string

const (
	FilterNone     Filter = "none"
	FilterSub      Filter = "sub"
	FilterUp       Filter = "up"
	FilterAverage  Filter = "average"
	FilterPaeth    Filter = "paeth"
	FilterAdaptive Filter = "adaptive" // per-row choice, minimum sum of absolute differences
)

// AllFilters returns all filter strategies.
func AllFilters() []Filter {
	return []Filter{FilterNone, FilterSub, FilterUp, FilterAverage, FilterPaeth, FilterAdaptive}
}

// ParseFilter parses a filter strategy name.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FilterAdaptive, nil
	}
	for _, valid := range AllFilters() {
		if f == valid {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q, valid filters: %v", s, AllFilters())
}

// filter type bytes
const (
	ftNone byte = iota
	ftSub
	ftUp
	ftAverage
	ftPaeth
	numFilterTypes
)

// rowFilter holds scratch rows; each output row starts with its type byte.
type rowFilter struct {
	strategy Filter
	bpp      int
	out      [numFilterTypes][]byte
}

func newRowFilter(strategy Filter, stride, bpp int) *rowFilter {
	f := &rowFilter{strategy: strategy, bpp: bpp}
	for i := range f.out {
		f.out[i] = make([]byte, stride+1)
		f.out[i][0] = byte(i)
	}
	return f
}

// apply returns the filtered row, type byte included. The returned slice is
// reused by the next call.
func (f *rowFilter) apply(cur, prev []byte) []byte {
	switch f.strategy {
	case FilterNone:
		return f.run(ftNone, cur, prev)
	case FilterSub:
		return f.run(ftSub, cur, prev)
	case FilterUp:
		return f.run(ftUp, cur, prev)
	case FilterAverage:
		return f.run(ftAverage, cur, prev)
	case FilterPaeth:
		return f.run(ftPaeth, cur, prev)
	}

	best := ftNone
	bestSum := -1
	for ft := ftNone; ft < numFilterTypes; ft++ {
		row := f.run(ft, cur, prev)
		sum := absSum(row[1:])
		if bestSum < 0 || sum < bestSum {
			best, bestSum = ft, sum
		}
	}
	return f.out[best]
}

func (f *rowFilter) run(ft byte, cur, prev []byte) []byte {
	out := f.out[ft]
	dst := out[1:]
	bpp := f.bpp
	switch ft {
	case ftNone:
		copy(dst, cur)
	case ftSub:
		copy(dst[:bpp], cur[:bpp])
		for i := bpp; i < len(cur); i++ {
			dst[i] = cur[i] - cur[i-bpp]
		}
	case ftUp:
		for i := range cur {
			dst[i] = cur[i] - prev[i]
		}
	case ftAverage:
		for i := 0; i < bpp; i++ {
			dst[i] = cur[i] - prev[i]/2
		}
		for i := bpp; i < len(cur); i++ {
			dst[i] = cur[i] - byte((int(cur[i-bpp])+int(prev[i]))/2)
		}
	case ftPaeth:
		for i := 0; i < bpp; i++ {
			dst[i] = cur[i] - paeth(0, prev[i], 0)
		}
		for i := bpp; i < len(cur); i++ {
			dst[i] = cur[i] - paeth(cur[i-bpp], prev[i], prev[i-bpp])
		}
	}
	return out
}

// paeth is the PNG Paeth predictor: a = left, b = above, c = upper left.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

// absSum treats each filtered byte as signed, the usual heuristic for
// picking the most compressible filter.
func absSum(row []byte) int {
	sum := 0
	for _, b := range row {
		sum += abs(int(int8(b)))
	}
	return sum
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
