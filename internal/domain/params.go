package domain

import "fmt"

// Params maps parameter names to fixed numeric values. Strategies read their
// parameters from a Params at construction time, applying defaults for any
// omitted name.
type Params map[string]float64

// Get returns the named parameter, or def when absent.
func (p Params) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Clone returns a copy of the parameter set.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ParamDomain is one searchable parameter: a name and its ordered candidate
// values.
type ParamDomain struct {
	Name   string
	Values []float64
}

// ParamGrid is an ordered list of parameter domains. Ordering is significant:
// the cartesian product is iterated with the last domain varying fastest, and
// search tie-breaks depend on that iteration order.
type ParamGrid []ParamDomain

// Size returns the number of combinations in the cartesian product, or 0 when
// any domain is empty or the grid itself is empty.
func (g ParamGrid) Size() int {
	if len(g) == 0 {
		return 0
	}
	total := 1
	for _, d := range g {
		total *= len(d.Values)
	}
	return total
}

// Combination materialises the i-th combination of the cartesian product as a
// Params. Combinations are ordered with the last domain varying fastest,
// matching nested-loop iteration over the grid in declaration order.
func (g ParamGrid) Combination(i int) Params {
	p := make(Params, len(g))
	for k := len(g) - 1; k >= 0; k-- {
		d := g[k]
		p[d.Name] = d.Values[i%len(d.Values)]
		i /= len(d.Values)
	}
	return p
}

// SingleValues expands a grid where every domain has exactly one value into a
// fixed Params. It returns an error when any domain carries more than one
// candidate.
func (g ParamGrid) SingleValues() (Params, error) {
	p := make(Params, len(g))
	for _, d := range g {
		if len(d.Values) != 1 {
			return nil, fmt.Errorf("parameter %q has %d candidate values, want exactly 1", d.Name, len(d.Values))
		}
		p[d.Name] = d.Values[0]
	}
	return p, nil
}

// FirstValues collapses a grid to fixed Params by taking the first value of
// every domain. Used when a search needs fixed parameters from a grid the
// caller supplied for optional optimisation.
func (g ParamGrid) FirstValues() Params {
	p := make(Params, len(g))
	for _, d := range g {
		if len(d.Values) > 0 {
			p[d.Name] = d.Values[0]
		}
	}
	return p
}
