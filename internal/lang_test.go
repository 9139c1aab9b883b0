package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchLanguage(t *testing.T) {
	cases := []struct {
		name string
		tags []string
		want string
		idx  int
	}{
		{"exact match", []string{"eng", "fra", "spa"}, "fra", 1},
		{"exact match is case-insensitive", []string{"ENG", "FRA"}, "fra", 1},
		{"macro language prefix", []string{"eng", "fra", "spa"}, "fr", 1},
		{"macro language reversed", []string{"en", "fr"}, "fra", 1},
		{"region subtag stripped", []string{"en-US", "fr-CA"}, "fr", 1},
		{"no match", []string{"eng", "fra"}, "de", -1},
		{"empty request", []string{"eng"}, "", -1},
		{"first of equal matches wins", []string{"en-US", "en-GB"}, "en", 0},
		{"exact beats fuzzy", []string{"en", "fra", "fr"}, "fr", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.idx, MatchLanguage(tc.tags, tc.want))
		})
	}
}
