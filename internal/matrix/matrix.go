// Package matrix enumerates benchmark parameter sweeps and resolves
// command templates against individual combinations.
package matrix

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Kind constrains the values a Dimension accepts.
type Kind string

const (
	// String accepts any value.
	String Kind = "string"
	// Int requires every value to parse as an integer (e.g. file counts).
	Int Kind = "int"
	// Bytes requires every value to parse as a byte size (e.g. "1MB").
	Bytes Kind = "bytes"
)

// Dimension is one ordered axis of the sweep.
type Dimension struct {
	Name   string
	Values []string
	Kind   Kind // empty means String
}

// Combination is one value per dimension, in dimension order.
type Combination struct {
	Index  int      // ordinal in nested-loop order, starting at 0
	Values []string // Values[d] belongs to dimension d
}

// Matrix is an immutable, validated list of dimensions.
type Matrix struct {
	dims []Dimension
}

// NewMatrix validates dims and returns a Matrix that owns a private copy
// of them. Declaration order is sweep order: the first dimension varies
// slowest.
func NewMatrix(dims ...Dimension) (*Matrix, error) {
	if len(dims) == 0 {
		return nil, Invalid("dimensions", "at least one dimension is required")
	}

	seen := make(map[string]bool, len(dims))
	own := make([]Dimension, len(dims))
	for i, d := range dims {
		field := fmt.Sprintf("dimensions[%d]", i)
		if d.Name == "" {
			return nil, Invalid(field, "name is required")
		}
		if seen[d.Name] {
			return nil, Invalid(field, "duplicate dimension name %q", d.Name)
		}
		seen[d.Name] = true

		if len(d.Values) == 0 {
			return nil, Invalid(field, "dimension %q has no values", d.Name)
		}
		kind := d.Kind
		if kind == "" {
			kind = String
		}
		for j, v := range d.Values {
			if err := checkValue(kind, v); err != nil {
				return nil, Invalid(fmt.Sprintf("%s.values[%d]", field, j), "%v", err)
			}
		}
		own[i] = Dimension{Name: d.Name, Values: slices.Clone(d.Values), Kind: kind}
	}
	return &Matrix{dims: own}, nil
}

func checkValue(kind Kind, v string) error {
	switch kind {
	case String:
		return nil
	case Int:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("%q is not an integer", v)
		}
		return nil
	case Bytes:
		if _, err := humanize.ParseBytes(v); err != nil {
			return fmt.Errorf("%q is not a byte size", v)
		}
		return nil
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
}

// Dimensions returns a copy of the matrix dimensions.
func (m *Matrix) Dimensions() []Dimension {
	out := make([]Dimension, len(m.dims))
	for i, d := range m.dims {
		out[i] = Dimension{Name: d.Name, Values: slices.Clone(d.Values), Kind: d.Kind}
	}
	return out
}

// Len returns the number of dimensions.
func (m *Matrix) Len() int { return len(m.dims) }

// Index returns the position of the dimension called name.
func (m *Matrix) Index(name string) (int, bool) {
	for i, d := range m.dims {
		if d.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Size returns the number of combinations: the product of dimension lengths.
func (m *Matrix) Size() int {
	n := 1
	for _, d := range m.dims {
		n *= len(d.Values)
	}
	return n
}

// All yields every combination in nested-loop order, last dimension
// cycling fastest. Each call starts over from the first combination.
func (m *Matrix) All() iter.Seq[Combination] {
	return func(yield func(Combination) bool) {
		pos := make([]int, len(m.dims))
		for n := 0; ; n++ {
			values := make([]string, len(m.dims))
			for d, p := range pos {
				values[d] = m.dims[d].Values[p]
			}
			if !yield(Combination{Index: n, Values: values}) {
				return
			}

			// Odometer step.
			d := len(pos) - 1
			for ; d >= 0; d-- {
				pos[d]++
				if pos[d] < len(m.dims[d].Values) {
					break
				}
				pos[d] = 0
			}
			if d < 0 {
				return
			}
		}
	}
}

// At returns the combination with ordinal i. At(i) equals the i-th
// combination yielded by All.
func (m *Matrix) At(i int) (Combination, error) {
	if i < 0 || i >= m.Size() {
		return Combination{}, fmt.Errorf("combination %d out of range [0, %d)", i, m.Size())
	}
	values := make([]string, len(m.dims))
	rest := i
	for d := len(m.dims) - 1; d >= 0; d-- {
		n := len(m.dims[d].Values)
		values[d] = m.dims[d].Values[rest%n]
		rest /= n
	}
	return Combination{Index: i, Values: values}, nil
}

// Label renders c as "name=value" pairs, e.g. "mode=-write files=16 size=1MB".
func (m *Matrix) Label(c Combination) string {
	parts := make([]string, 0, len(c.Values))
	for d, v := range c.Values {
		name := strconv.Itoa(d)
		if d < len(m.dims) {
			name = m.dims[d].Name
		}
		parts = append(parts, name+"="+v)
	}
	return strings.Join(parts, " ")
}

// Values maps dimension names to the values selected by c.
func (m *Matrix) Values(c Combination) map[string]string {
	out := make(map[string]string, len(m.dims))
	for d, dim := range m.dims {
		if d < len(c.Values) {
			out[dim.Name] = c.Values[d]
		}
	}
	return out
}
