package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

const createRun = `
INSERT INTO scout_run (started_at) VALUES (?) RETURNING id
`

func (q *Queries) CreateRun(ctx context.Context, startedAt int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, createRun, startedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const finishRun = `
UPDATE scout_run SET finished_at = ?, lots_considered = ? WHERE id = ?
`

type FinishRunParams struct {
	ID             int64
	FinishedAt     int64
	LotsConsidered int64
}

func (q *Queries) FinishRun(ctx context.Context, params FinishRunParams) error {
	_, err := q.db.ExecContext(ctx, finishRun, params.FinishedAt, params.LotsConsidered, params.ID)
	return err
}

const noteLotOutcome = `
INSERT INTO lot_outcome (run_id, lot_id, address, query, outcome, best_match, detail)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id, lot_id) DO UPDATE SET
    address = excluded.address,
    query = excluded.query,
    outcome = excluded.outcome,
    best_match = excluded.best_match,
    detail = excluded.detail
`

type NoteLotOutcomeParams struct {
	RunID     int64
	LotID     string
	Address   string
	Query     string
	Outcome   string
	BestMatch string
	Detail    string
}

func (q *Queries) NoteLotOutcome(ctx context.Context, params NoteLotOutcomeParams) error {
	_, err := q.db.ExecContext(
		ctx, noteLotOutcome,
		params.RunID,
		params.LotID,
		params.Address,
		params.Query,
		params.Outcome,
		params.BestMatch,
		params.Detail,
	)
	return err
}

type LotOutcomeRow struct {
	RunID     int64
	LotID     string
	Address   string
	Query     string
	Outcome   string
	BestMatch string
	Detail    string
}

const getRunOutcomes = `
SELECT run_id, lot_id, address, query, outcome, best_match, detail
FROM lot_outcome WHERE run_id = ?
`

func (q *Queries) GetRunOutcomes(ctx context.Context, runId int64) ([]LotOutcomeRow, error) {
	rows, err := q.db.QueryContext(ctx, getRunOutcomes, runId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LotOutcomeRow
	for rows.Next() {
		var row LotOutcomeRow
		err := rows.Scan(
			&row.RunID,
			&row.LotID,
			&row.Address,
			&row.Query,
			&row.Outcome,
			&row.BestMatch,
			&row.Detail,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
