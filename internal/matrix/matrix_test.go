package matrix

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hadoopMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := NewMatrix(
		Dimension{Name: "mode", Values: []string{"-write", "-read"}},
		Dimension{Name: "files", Values: []string{"16", "32"}, Kind: Int},
		Dimension{Name: "size", Values: []string{"1MB", "2MB"}, Kind: Bytes},
	)
	require.NoError(t, err)
	return m
}

func collect(m *Matrix) [][]string {
	var out [][]string
	for c := range m.All() {
		out = append(out, c.Values)
	}
	return out
}

func TestAll_NestedLoopOrder(t *testing.T) {
	m := hadoopMatrix(t)
	got := collect(m)

	require.Len(t, got, 8)
	assert.Equal(t, []string{"-write", "16", "1MB"}, got[0])
	assert.Equal(t, []string{"-write", "16", "2MB"}, got[1])
	assert.Equal(t, []string{"-write", "32", "1MB"}, got[2])
	assert.Equal(t, []string{"-read", "32", "2MB"}, got[7])
}

func TestAll_IndexMatchesPosition(t *testing.T) {
	m := hadoopMatrix(t)
	i := 0
	for c := range m.All() {
		assert.Equal(t, i, c.Index)
		i++
	}
}

func TestAll_SizeAndUniqueness(t *testing.T) {
	for _, lens := range [][3]int{{1, 1, 1}, {2, 3, 4}, {3, 1, 5}, {4, 4, 1}} {
		var dims []Dimension
		for d, n := range lens {
			vals := make([]string, n)
			for i := range vals {
				vals[i] = string(rune('a'+d)) + string(rune('0'+i))
			}
			dims = append(dims, Dimension{Name: string(rune('x' + d)), Values: vals})
		}
		m, err := NewMatrix(dims...)
		require.NoError(t, err)

		want := lens[0] * lens[1] * lens[2]
		assert.Equal(t, want, m.Size())

		seen := make(map[string]bool)
		for _, vals := range collect(m) {
			key := vals[0] + "/" + vals[1] + "/" + vals[2]
			assert.False(t, seen[key], "duplicate combination %s", key)
			seen[key] = true
		}
		assert.Len(t, seen, want, "lengths %v", lens)
	}
}

func TestAll_Restartable(t *testing.T) {
	m := hadoopMatrix(t)
	first := collect(m)
	second := collect(m)
	assert.Equal(t, first, second)
}

func TestAll_EarlyStop(t *testing.T) {
	m := hadoopMatrix(t)
	n := 0
	for range m.All() {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestAt_AgreesWithAll(t *testing.T) {
	m := hadoopMatrix(t)
	for c := range m.All() {
		got, err := m.At(c.Index)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := m.At(m.Size())
	assert.Error(t, err)
	_, err = m.At(-1)
	assert.Error(t, err)
}

func TestNewMatrix_Invalid(t *testing.T) {
	cases := map[string][]Dimension{
		"no dimensions":   nil,
		"empty dimension": {{Name: "mode", Values: []string{"-write"}}, {Name: "files"}},
		"missing name":    {{Values: []string{"a"}}},
		"duplicate name":  {{Name: "a", Values: []string{"1"}}, {Name: "a", Values: []string{"2"}}},
		"bad int":         {{Name: "files", Values: []string{"16", "many"}, Kind: Int}},
		"bad bytes":       {{Name: "size", Values: []string{"1MB", "huge"}, Kind: Bytes}},
		"unknown kind":    {{Name: "size", Values: []string{"1"}, Kind: "float"}},
	}
	for name, dims := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewMatrix(dims...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "err = %v", err)
		})
	}
}

func TestNewMatrix_CopiesValues(t *testing.T) {
	vals := []string{"a", "b"}
	m, err := NewMatrix(Dimension{Name: "x", Values: vals})
	require.NoError(t, err)

	vals[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, m.Dimensions()[0].Values)
	assert.Equal(t, String, m.Dimensions()[0].Kind)
}

func TestLabelAndValues(t *testing.T) {
	m := hadoopMatrix(t)
	c, err := m.At(0)
	require.NoError(t, err)

	assert.Equal(t, "mode=-write files=16 size=1MB", m.Label(c))
	assert.Equal(t, map[string]string{"mode": "-write", "files": "16", "size": "1MB"}, m.Values(c))

	i, ok := m.Index("size")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = m.Index("nope")
	assert.False(t, ok)
}

func TestAll_FirstDimensionSlowest(t *testing.T) {
	m := hadoopMatrix(t)
	modes := make([]string, 0, m.Size())
	for c := range m.All() {
		modes = append(modes, c.Values[0])
	}
	// -write for the first half, -read for the second.
	assert.True(t, slices.Equal(modes[:4], []string{"-write", "-write", "-write", "-write"}))
	assert.True(t, slices.Equal(modes[4:], []string{"-read", "-read", "-read", "-read"}))
}
