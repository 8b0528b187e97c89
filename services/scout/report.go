package scout

import (
	"fmt"
	"strings"

	"lotscout-backend/lib/lotstore"

	"github.com/jedib0t/go-pretty/v6/table"
)

type OutcomeKind string

const (
	// got a structured search payload back
	OutcomeSearched OutcomeKind = "searched"
	// got a response that wasn't structured data
	OutcomeRaw OutcomeKind = "raw"
	// address normalized to nothing, never queried
	OutcomeSkipped OutcomeKind = "skipped"
	// transport-level failure for this lot only
	OutcomeFailed OutcomeKind = "failed"
)

type LotOutcome struct {
	Lot       lotstore.Lot
	Query     string
	Kind      OutcomeKind
	BestMatch string
	Detail    string
}

type Report struct {
	RunID    int64
	Lots     []LotOutcome
	Searched int
	Raw      int
	Skipped  int
	Failed   int
}

func (r *Report) add(outcome LotOutcome) {
	r.Lots = append(r.Lots, outcome)
	switch outcome.Kind {
	case OutcomeSearched:
		r.Searched++
	case OutcomeRaw:
		r.Raw++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// SearchAttempts counts the lots that actually hit the search api.
func (r Report) SearchAttempts() int {
	return r.Searched + r.Raw + r.Failed
}

// RenderTable renders the per-lot outcomes for the terminal.
func (r Report) RenderTable() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"lot", "address", "outcome", "best match / detail"})

	for _, outcome := range r.Lots {
		detail := outcome.BestMatch
		if detail == "" {
			detail = outcome.Detail
		}
		t.AppendRow(table.Row{
			outcome.Lot.ID,
			outcome.Lot.Address,
			string(outcome.Kind),
			detail,
		})
	}
	t.AppendFooter(table.Row{
		"",
		"",
		"totals",
		renderTotals(r),
	})

	return t.Render()
}

func renderTotals(r Report) string {
	parts := []string{}
	for _, p := range []struct {
		n     int
		label string
	}{
		{r.Searched, "searched"},
		{r.Raw, "raw"},
		{r.Skipped, "skipped"},
		{r.Failed, "failed"},
	} {
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p.n, p.label))
		}
	}
	if len(parts) == 0 {
		return "no lots processed"
	}
	return strings.Join(parts, ", ")
}
