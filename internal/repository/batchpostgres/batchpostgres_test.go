package batchpostgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"
)

func newRepoWithMock(t *testing.T) (PostgresRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pg := &dbpg.DB{Master: db}

	repo := PostgresRepo{DB: pg}

	return repo, mock
}

// CREATE - SUCCESS
func TestPostgresRepo_Create_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	started := time.Now()
	finished := started.Add(time.Second)
	b := &model.BatchSummary{
		ID:           uuid.New(),
		Model:        model.ModelGeneral,
		AlphaMatting: true,
		Total:        3,
		Processed:    2,
		Failures:     model.FailureReport{{Kind: model.KindDecode, Item: "two.png"}},
		StartedAt:    &started,
		FinishedAt:   &finished,
	}

	mock.ExpectExec(`INSERT INTO batches`).
		WithArgs(
			b.ID,
			b.Model,
			b.AlphaMatting,
			b.Total,
			b.Processed,
			b.Failures,
			b.StartedAt,
			b.FinishedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), b)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// CREATE - DBERROR
func TestPostgresRepo_Create_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO batches`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &model.BatchSummary{ID: uuid.New()})
	require.Error(t, err)
}

// GETLIST - SUCCESS
func TestPostgresRepo_GetList_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	req := &model.ListRequest{
		Page:  2,
		Limit: 2,
		Order: "DESC",
	}

	rows := sqlmock.NewRows([]string{
		"batch_uid", "model", "alpha_matting", "total", "processed", "failures", "started_at", "finished_at",
	}).
		AddRow(uuid.New().String(), string(model.ModelGeneral), false, 2, 2, []byte(`[]`), time.Now(), time.Now()).
		AddRow(uuid.New().String(), string(model.ModelLightWght), true, 3, 2, []byte(`[{"kind":"decode_failure","item":"b.png"}]`), time.Now(), time.Now())

	mock.ExpectQuery(`SELECT batch_uid, model`).
		WithArgs(2, 2).
		WillReturnRows(rows)

	res, err := repo.GetList(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, model.ModelLightWght, res[1].Model)
	require.Len(t, res[1].Failures, 1)
	require.Equal(t, "b.png", res[1].Failures[0].Item)
	require.Empty(t, res[0].Failures)
}

// GETLIST - DBERROR
func TestPostgresRepo_GetList_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT batch_uid`).
		WillReturnError(errors.New("db down"))

	_, err := repo.GetList(context.Background(), &model.ListRequest{Page: 1, Limit: 10, Order: "ASC"})
	require.Error(t, err)
}

// GETLIST - BAD ROW
func TestPostgresRepo_GetList_ScanError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{
		"batch_uid", "model", "alpha_matting", "total", "processed", "failures", "started_at", "finished_at",
	}).AddRow(uuid.New().String(), string(model.ModelGeneral), false, 1, 1, []byte(`not-json`), time.Now(), time.Now())

	mock.ExpectQuery(`SELECT batch_uid`).
		WithArgs(10, 0).
		WillReturnRows(rows)

	_, err := repo.GetList(context.Background(), &model.ListRequest{Page: 1, Limit: 10, Order: "ASC"})
	require.Error(t, err)
}
