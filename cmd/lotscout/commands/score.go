package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"lotscout-backend/lib/configutil"
	"lotscout-backend/lib/scoring"
	"lotscout-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type lotFactsFile []struct {
	Address          string  `json:"address"`
	Zoning           string  `json:"zoning"`
	LotSizeAcres     float64 `json:"lot_size_acres"`
	IsAbsenteeOwner  bool    `json:"is_absentee_owner"`
	TaxDelinquentYrs int     `json:"tax_delinquent_yrs"`
	LastSaleDate     string  `json:"last_sale_date"`
	Zip              string  `json:"zip"`
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

var scoreCmd = &cobra.Command{
	Use:   "score <facts.json>",
	Short: "Computes lead scores for lot facts in a json file.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		contents, err := os.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read facts file", err)
		}
		var facts lotFactsFile
		err = json.Unmarshal(contents, &facts)
		if err != nil {
			serviceutil.Fatal("failed to parse facts file", err)
		}

		// neighborhood premiums are optional
		scoreCfg, err := configutil.ReadConfig[scoring.Config]("scoring.json5")
		if err != nil && !os.IsNotExist(err) {
			serviceutil.Fatal("failed to read scoring config", err)
		}

		now := time.Now()
		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"address", "zip", "score"})
		for _, f := range facts {
			var lastSale *time.Time
			if f.LastSaleDate != "" {
				parsed, err := time.Parse("2006-01-02", f.LastSaleDate)
				if err != nil {
					serviceutil.Fatal(fmt.Sprintf("bad last_sale_date for %q", f.Address), err)
				}
				lastSale = &parsed
			}

			score := scoring.LeadScore(now, scoring.LotFacts{
				Zoning:           f.Zoning,
				LotSizeAcres:     f.LotSizeAcres,
				IsAbsenteeOwner:  f.IsAbsenteeOwner,
				TaxDelinquentYrs: f.TaxDelinquentYrs,
				LastSaleDate:     lastSale,
				Zip:              f.Zip,
			}, scoreCfg)
			t.AppendRow(table.Row{f.Address, f.Zip, score})
		}
		fmt.Println(t.Render())
	},
}
