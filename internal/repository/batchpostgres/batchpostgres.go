// Package batchpostgres stores batch summaries (metadata only, never image bytes) in PostgreSQL
package batchpostgres

import (
	"context"
	"fmt"
	"log"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Create(ctx context.Context, s *model.BatchSummary) error {
	query := `INSERT INTO batches (batch_uid, model, alpha_matting, total, processed, failures, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := p.DB.Master.ExecContext(ctx, query, s.ID, s.Model, s.AlphaMatting, s.Total, s.Processed, s.Failures, s.StartedAt, s.FinishedAt)
	return err
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.BatchSummary, error) {
	// Order уже провалидирован сервисом и может быть только ASC/DESC
	query := fmt.Sprintf(`SELECT batch_uid, model, alpha_matting, total, processed, failures, started_at, finished_at
	FROM batches
	ORDER BY started_at %s
	LIMIT $1
	OFFSET $2`, req.Order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	batches := make([]model.BatchSummary, 0, req.Limit)
	for rows.Next() {
		var b model.BatchSummary
		if err := rows.Scan(&b.ID,
			&b.Model,
			&b.AlphaMatting,
			&b.Total,
			&b.Processed,
			&b.Failures,
			&b.StartedAt,
			&b.FinishedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return batches, nil
}
