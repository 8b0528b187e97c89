package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lotscout-backend/lib/configutil"
	"lotscout-backend/lib/lotstore"
	"lotscout-backend/lib/restyutil"
	"lotscout-backend/lib/scrapers/rpr"
	"lotscout-backend/lib/serviceutil"
	"lotscout-backend/lib/sqliteutil"
	"lotscout-backend/lib/telemetry"
	"lotscout-backend/services/scout"
	"lotscout-backend/services/scout/db"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

type RprConfig struct {
	BaseUrl string `json:"base_url"`
	// override when the entry page grows more than one form
	FormSelector string `json:"form_selector"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

type SupabaseConfig struct {
	Url        string `json:"url"`
	ServiceKey string `json:"service_key"`
}

type SearchConfig struct {
	City     string `json:"city"`
	State    string `json:"state"`
	MinScore int    `json:"min_score"`
	MaxLots  int    `json:"max_lots"`
}

type Config struct {
	Rpr      RprConfig      `json:"rpr"`
	Supabase SupabaseConfig `json:"supabase"`
	Search   SearchConfig   `json:"search"`
}

var scoutDb *string
var httpDumpDir *string

func init() {
	scoutDb = scoutCmd.Flags().String("db", "scout.db", "The database to write run outcomes to.")
	httpDumpDir = scoutCmd.Flags().String("http-dump", "", "Directory to dump raw portal traffic into (debug).")
	rootCmd.AddCommand(scoutCmd)
}

var scoutCmd = &cobra.Command{
	Use:   "scout [--db <path/to/scout.db>]",
	Short: "Logs into the portal and searches the top-ranked lots.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		ctx := cmd.Context()
		telemetry.InstrumentPerfStats(ctx)

		if *httpDumpDir != "" {
			rpr.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(*httpDumpDir))
		}

		initCtx, cancel := context.WithTimeout(ctx, time.Second*30)
		defer cancel()
		rprClient, err := rpr.NewClient(initCtx, rpr.ClientOptions{
			BaseUrl:      cfg.Rpr.BaseUrl,
			FormSelector: cfg.Rpr.FormSelector,
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize portal client", err)
		}

		database, err := sqliteutil.OpenDB(db.Schema, *scoutDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		service := scout.NewService(database, scout.Options{
			Rpr:  rprClient,
			Lots: lotstore.NewClient(lotstore.Options{BaseUrl: cfg.Supabase.Url, ServiceKey: cfg.Supabase.ServiceKey}),
			Credentials: scout.Credentials{
				Email:    cfg.Rpr.Email,
				Password: cfg.Rpr.Password,
			},
			Search: scout.SearchOptions{
				City:     cfg.Search.City,
				State:    cfg.Search.State,
				MinScore: cfg.Search.MinScore,
				MaxLots:  cfg.Search.MaxLots,
			},
		})

		t1 := time.Now()
		report, err := service.Run(ctx)
		if err != nil {
			serviceutil.Fatal("pipeline failed", err)
		}
		t2 := time.Now()

		fmt.Println(report.RenderTable())
		slog.Info(
			"scout run finished",
			"run", report.RunID,
			"searched", report.Searched,
			"raw", report.Raw,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"seconds", t2.Sub(t1).Seconds(),
		)
	},
}
