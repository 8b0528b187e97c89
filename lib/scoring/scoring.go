package scoring

import (
	"strings"
	"time"
)

// LotFacts are the attributes of a lot that feed the lead score.
type LotFacts struct {
	Zoning           string
	LotSizeAcres     float64
	IsAbsenteeOwner  bool
	TaxDelinquentYrs int
	LastSaleDate     *time.Time
	Zip              string
}

type Config struct {
	// extra points per zip code, capped at 15
	NeighborhoodScores map[string]int `json:"neighborhood_scores"`
}

// LeadScore ranks a lot 0-100 for acquisition outreach. Higher density
// zoning, a buildable lot size, absentee owners, tax delinquency and
// long ownership all push the score up.
func LeadScore(now time.Time, lot LotFacts, cfg Config) int {
	score := 0

	z := strings.ToUpper(lot.Zoning)
	switch {
	case z == "":
	case strings.Contains(z, "R5") || strings.Contains(z, "R-5") || strings.Contains(z, "MR"):
		score += 25
	case strings.Contains(z, "R4") || strings.Contains(z, "R-4"):
		score += 22
	case strings.Contains(z, "R3") || strings.Contains(z, "R-3"):
		score += 18
	case strings.Contains(z, "R2") || strings.Contains(z, "R-2"):
		score += 12
	case strings.Contains(z, "R1") || strings.Contains(z, "R-1"):
		score += 8
	}

	acres := lot.LotSizeAcres
	switch {
	case acres >= 0.14 && acres <= 0.22:
		score += 20
	case acres >= 0.12 && acres <= 0.25:
		score += 15
	case acres >= 0.10 && acres <= 0.30:
		score += 10
	case acres >= 0.08 && acres <= 0.35:
		score += 5
	}

	if lot.IsAbsenteeOwner {
		score += 15
	}

	if lot.TaxDelinquentYrs > 0 {
		score += min(lot.TaxDelinquentYrs*5, 15)
	}

	if lot.LastSaleDate != nil {
		yearsOwned := now.Sub(*lot.LastSaleDate).Hours() / (365.25 * 24)
		switch {
		case yearsOwned > 10:
			score += 10
		case yearsOwned > 5:
			score += 7
		case yearsOwned > 3:
			score += 5
		case yearsOwned > 1:
			score += 3
		}
	} else {
		// no sale on record usually means a long-term owner
		score += 8
	}

	score += min(cfg.NeighborhoodScores[lot.Zip], 15)

	return min(score, 100)
}
