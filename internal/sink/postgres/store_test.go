package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkraev/alkoteka-crawler/internal/catalog"
)

func sampleRecord() catalog.ProductRecord {
	return catalog.ProductRecord{
		Timestamp: 1700000000,
		RPC:       15033,
		URL:       "https://alkoteka.com/product/viski/whiskey-07",
		Title:     "Whiskey, 0.7 л",
		Brand:     "Jack Daniel's",
		PriceData: catalog.PriceData{Original: 1000, Current: 800, SaleTag: "Скидка 20%"},
		Stock:     catalog.Stock{InStock: true, Count: 3},
		Variants:  2,
	}
}

func TestStoreEmitInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "products")
	require.NoError(t, err)

	record := sampleRecord()
	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			"15033",
			record.URL,
			record.Title,
			record.Brand,
			record.PriceData.Original,
			record.PriceData.Current,
			record.Stock.InStock,
			record.Stock.Count,
			record.Variants,
			time.Unix(record.Timestamp, 0).UTC(),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Emit(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreEmitNilRPCBecomesEmptyString(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "products")
	require.NoError(t, err)

	record := sampleRecord()
	record.RPC = nil
	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			"",
			record.URL,
			record.Title,
			record.Brand,
			record.PriceData.Original,
			record.PriceData.Current,
			record.Stock.InStock,
			record.Stock.Count,
			record.Variants,
			time.Unix(record.Timestamp, 0).UTC(),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Emit(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreEmitWrapsExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "products")
	require.NoError(t, err)

	execErr := errors.New("deadlock detected")
	mock.ExpectExec("INSERT INTO products").WillReturnError(execErr)

	err = store.Emit(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, execErr)
}

func TestNewWithPoolValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(nil, "products")
	assert.Error(t, err)

	_, err = NewWithPool(mock, "products; drop table users")
	assert.Error(t, err)

	store, err := NewWithPool(mock, "")
	require.NoError(t, err)
	assert.Equal(t, "products", store.table)
}

func TestStoreCloseWithoutPool(t *testing.T) {
	t.Parallel()

	var store *Store
	assert.NoError(t, store.Close(context.Background()))
}
