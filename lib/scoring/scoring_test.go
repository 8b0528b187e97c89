package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func TestLeadScoreCapped(t *testing.T) {
	sale := now.AddDate(-20, 0, 0)
	score := LeadScore(now, LotFacts{
		Zoning:           "R-5",
		LotSizeAcres:     0.18,
		IsAbsenteeOwner:  true,
		TaxDelinquentYrs: 6,
		LastSaleDate:     &sale,
		Zip:              "30310",
	}, Config{
		NeighborhoodScores: map[string]int{"30310": 40},
	})
	require.Equal(t, 100, score)
}

func TestLeadScoreComponents(t *testing.T) {
	require.Equal(t, 0, LeadScore(now, LotFacts{LastSaleDate: &now}, Config{}))

	// no sale date alone scores the long-term-owner default
	require.Equal(t, 8, LeadScore(now, LotFacts{}, Config{}))

	sale := now.AddDate(-4, 0, 0)
	got := LeadScore(now, LotFacts{
		Zoning:       "R4",
		LotSizeAcres: 0.20,
		LastSaleDate: &sale,
	}, Config{})
	require.Equal(t, 22+20+5, got)
}

func TestLeadScoreTaxDelinquencyCapped(t *testing.T) {
	a := LeadScore(now, LotFacts{TaxDelinquentYrs: 3, LastSaleDate: &now}, Config{})
	b := LeadScore(now, LotFacts{TaxDelinquentYrs: 30, LastSaleDate: &now}, Config{})
	require.Equal(t, 15, a)
	require.Equal(t, a, b)
}
