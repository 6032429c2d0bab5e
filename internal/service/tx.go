package service

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// txRunner runs a function inside a database transaction, committing on nil
// and rolling back on error. Satisfied by *database.DB.
type txRunner interface {
	InTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}
