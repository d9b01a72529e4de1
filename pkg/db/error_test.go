package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

var errBusiness = errors.New("product_not_found")

func TestClassifyStorageFailures(t *testing.T) {
	cases := map[string]error{
		"bad conn":        fmt.Errorf("query: %w", driver.ErrBadConn),
		"deadline":        fmt.Errorf("tx: %w", context.DeadlineExceeded),
		"pg admin stop":   &pgconn.PgError{Code: "57P01"},
		"pg conn failure": &pgconn.PgError{Code: "08006"},
		"pq conn failure": &pq.Error{Code: "08003"},
	}
	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			classified := Classify(err)
			assert.ErrorIs(t, classified, ErrStorageUnavailable)
			assert.ErrorIs(t, classified, err)
		})
	}
}

func TestClassifyLeavesOtherErrorsAlone(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.Same(t, errBusiness, Classify(errBusiness))

	unique := &pgconn.PgError{Code: "23505"}
	assert.False(t, errors.Is(Classify(unique), ErrStorageUnavailable))
	assert.True(t, IsDuplicateKeyErr(unique))
}

func TestClassifyIsIdempotent(t *testing.T) {
	once := Classify(driver.ErrBadConn)
	assert.Equal(t, once, Classify(once))
}
