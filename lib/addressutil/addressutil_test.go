package addressutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"123 Main St LOT 5", "123 Main St"},
		{"456 Oak Ave # REAR", "456 Oak Ave"},
		{"789 Pine Rd", "789 Pine Rd"},
		{"12 Birch Ln REAR", "12 Birch Ln"},
		{"LOT 5", ""},
		{"  900 Peachtree   St NE ", "900 Peachtree St NE"},
		{"", ""},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Normalize(c.in), "input: %q", c.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"123 Main St LOT 5",
		"456 Oak Ave # REAR",
		"789 Pine Rd",
		"LOT 12 REAR",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), "input: %q", in)
	}
}

func TestSearchQueryString(t *testing.T) {
	q := SearchQuery{
		Address: "123 Main St",
		City:    "Atlanta",
		State:   "GA",
		Zip:     "30310",
	}
	require.Equal(t, "123 Main St, Atlanta, GA 30310", q.String())
}
