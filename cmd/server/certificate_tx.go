package main

import (
	"context"
	"database/sql"
	"time"

	certstore "petcert/internal/certificate/store"
	"petcert/internal/registry"
	dErrors "petcert/pkg/domain-errors"
)

const defaultIssueTxTimeout = 5 * time.Second

// certificatePostgresTx runs the issuance write pair inside one database
// transaction: the certificate insert and the record immutability flip commit
// together or not at all.
type certificatePostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newCertificatePostgresTx(db *sql.DB) *certificatePostgresTx {
	return &certificatePostgresTx{db: db}
}

func (t *certificatePostgresTx) RunInTx(ctx context.Context, fn func(certs certstore.Store, records registry.RecordMarker) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultIssueTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(certstore.NewPostgresTx(tx), registry.NewPostgresRecordsTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}
