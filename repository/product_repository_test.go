package repository_test

import (
	"context"
	"regexp"
	"testing"

	"commerce-api/apperr"
	"commerce-api/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestListRejectsUnknownFilterField(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewProductRepository(gormDB)

	_, _, err := repo.List(context.Background(), repository.QuerySpec{
		Filters: []repository.Filter{{Field: "password", Op: "eq", Value: "x"}},
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)

	// The rejection happens before any SQL is issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRejectsUnknownOperatorAndSort(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewProductRepository(gormDB)

	_, _, err := repo.List(context.Background(), repository.QuerySpec{
		Filters: []repository.Filter{{Field: "price", Op: "regexp", Value: ".*"}},
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)

	_, _, err = repo.List(context.Background(), repository.QuerySpec{
		SortBy: "price; DROP TABLE products",
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBindsFilterValuesAsParameters(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewProductRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products"`)).
		WithArgs(true, 50.0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WithArgs(true, 50.0, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	products, total, err := repo.List(context.Background(), repository.QuerySpec{
		Filters: []repository.Filter{{Field: "price", Op: "gte", Value: 50.0}},
		SortBy:  "price",
		SortDir: "asc",
	})
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDeactivatesActiveRowOnly(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewProductRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	affected, err := repo.Delete(context.Background(), 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
