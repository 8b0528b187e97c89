// Package scout drives the lot-enrichment pipeline: bootstrap a
// portal session, pull the top-ranked lots, and resolve each one
// against the portal's property search.
package scout

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lotscout-backend/lib/addressutil"
	"lotscout-backend/lib/lotstore"
	"lotscout-backend/lib/scrapers/rpr"
	"lotscout-backend/services/scout/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/scout")

type Credentials struct {
	Email    string
	Password string
}

type SearchOptions struct {
	// city/state suffix appended to every query. the portal search
	// needs them even though the lot record carries a city of its own.
	City  string
	State string
	// lot ranking bounds
	MinScore int
	MaxLots  int
}

type Options struct {
	Rpr         *rpr.Client
	Lots        *lotstore.Client
	Credentials Credentials
	Search      SearchOptions
}

type Service struct {
	qry  *db.Queries
	opts Options
}

func NewService(database *sql.DB, opts Options) Service {
	if opts.Search.City == "" {
		opts.Search.City = "Atlanta"
	}
	if opts.Search.State == "" {
		opts.Search.State = "GA"
	}
	if opts.Search.MinScore == 0 {
		opts.Search.MinScore = 60
	}
	if opts.Search.MaxLots == 0 {
		opts.Search.MaxLots = 5
	}
	return Service{
		qry:  db.New(database),
		opts: opts,
	}
}

// Run executes one full pipeline pass. Form extraction, login and the
// lot query are fatal; anything that goes wrong on an individual lot
// is isolated to that lot's outcome.
func (s Service) Run(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "service:Run")
	defer span.End()

	runId, err := s.qry.CreateRun(ctx, time.Now().Unix())
	if err != nil {
		span.SetStatus(codes.Error, "failed to create run record")
		return Report{}, err
	}

	form, err := s.opts.Rpr.ExtractLoginForm(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to extract login form")
		return Report{}, fmt.Errorf("extract login form: %w", err)
	}
	slog.InfoContext(ctx, "extracted login form",
		"action", form.Action,
		"method", form.Method,
		"hidden_fields", len(form.HiddenFields),
	)

	err = s.opts.Rpr.Login(ctx, form, s.opts.Credentials.Email, s.opts.Credentials.Password)
	if err != nil {
		span.SetStatus(codes.Error, "failed to login")
		return Report{}, fmt.Errorf("login: %w", err)
	}
	slog.InfoContext(ctx, "login succeeded", "email", s.opts.Credentials.Email)

	lots, err := s.opts.Lots.TopLots(ctx, lotstore.TopLotsQuery{
		MinScore: s.opts.Search.MinScore,
		Limit:    s.opts.Search.MaxLots,
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch lots")
		return Report{}, fmt.Errorf("fetch lots: %w", err)
	}
	slog.InfoContext(ctx, "fetched lots to search", "count", len(lots))
	span.SetAttributes(attribute.Int("lot_count", len(lots)))

	report := Report{RunID: runId}
	for _, lot := range lots {
		outcome := s.searchLot(ctx, lot)
		report.add(outcome)

		err := s.qry.NoteLotOutcome(ctx, db.NoteLotOutcomeParams{
			RunID:     runId,
			LotID:     lot.ID,
			Address:   lot.Address,
			Query:     outcome.Query,
			Outcome:   string(outcome.Kind),
			BestMatch: outcome.BestMatch,
			Detail:    outcome.Detail,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to note lot outcome", "lot", lot.ID, "err", err)
		}
	}

	err = s.qry.FinishRun(ctx, db.FinishRunParams{
		ID:             runId,
		FinishedAt:     time.Now().Unix(),
		LotsConsidered: int64(len(lots)),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to finish run record", "run", runId, "err", err)
	}

	return report, nil
}

func (s Service) searchLot(ctx context.Context, lot lotstore.Lot) LotOutcome {
	ctx, span := tracer.Start(ctx, "service:searchLot")
	defer span.End()
	span.SetAttributes(
		attribute.String("lot", lot.ID),
		attribute.String("address", lot.Address),
	)

	address := addressutil.Normalize(lot.Address)
	if address == "" {
		slog.InfoContext(ctx, "skipping lot without a usable address", "lot", lot.ID)
		return LotOutcome{
			Lot:    lot,
			Kind:   OutcomeSkipped,
			Detail: "address is empty after normalization",
		}
	}
	// the repository filters these out too, but don't rely on it
	if strings.HasPrefix(address, "0 ") {
		slog.InfoContext(ctx, "skipping placeholder address", "lot", lot.ID, "address", address)
		return LotOutcome{
			Lot:    lot,
			Kind:   OutcomeSkipped,
			Detail: "placeholder address",
		}
	}

	query := addressutil.SearchQuery{
		Address: address,
		City:    s.opts.Search.City,
		State:   s.opts.Search.State,
		Zip:     lot.Zip,
	}.String()
	slog.InfoContext(ctx, "searching lot", "lot", lot.ID, "query", query)

	result, err := s.opts.Rpr.SearchAutocomplete(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		slog.WarnContext(ctx, "search failed", "lot", lot.ID, "err", err)
		return LotOutcome{
			Lot:    lot,
			Query:  query,
			Kind:   OutcomeFailed,
			Detail: err.Error(),
		}
	}

	if !result.IsStructured() {
		return LotOutcome{
			Lot:    lot,
			Query:  query,
			Kind:   OutcomeRaw,
			Detail: preview(result.Raw),
		}
	}

	return LotOutcome{
		Lot:       lot,
		Query:     query,
		Kind:      OutcomeSearched,
		BestMatch: rpr.BestMatch(result, query),
	}
}

func preview(body string) string {
	if len(body) > 200 {
		return body[:200]
	}
	return body
}
