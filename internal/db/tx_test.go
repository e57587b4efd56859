package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type stubTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *stubTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type stubBeginner struct {
	tx   *stubTx
	opts pgx.TxOptions
	err  error
}

func (b *stubBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.opts = opts
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	b := &stubBeginner{tx: &stubTx{}}
	if err := WithTx(context.Background(), b, func(context.Context, pgx.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.tx.committed || b.tx.rolledBack {
		t.Fatalf("expected commit only, got %+v", b.tx)
	}
	if b.opts.IsoLevel != pgx.ReadCommitted {
		t.Fatalf("iso level = %q", b.opts.IsoLevel)
	}
}

func TestWithTxRollsBackAndKeepsCallerError(t *testing.T) {
	b := &stubBeginner{tx: &stubTx{}}
	notFound := errors.New("complaint not found")

	err := WithTx(context.Background(), b, func(context.Context, pgx.Tx) error { return notFound })
	if err != notFound {
		t.Fatalf("expected caller error unchanged got %v", err)
	}
	if b.tx.committed || !b.tx.rolledBack {
		t.Fatalf("expected rollback only, got %+v", b.tx)
	}
}

func TestWithTxWrapsBeginAndCommitFailures(t *testing.T) {
	down := errors.New("connection reset")

	err := WithTx(context.Background(), &stubBeginner{err: down}, func(context.Context, pgx.Tx) error {
		t.Fatalf("fn must not run without a transaction")
		return nil
	})
	if !errors.Is(err, down) {
		t.Fatalf("expected begin error got %v", err)
	}

	b := &stubBeginner{tx: &stubTx{commitErr: down}}
	err = WithTx(context.Background(), b, func(context.Context, pgx.Tx) error { return nil })
	if !errors.Is(err, down) || !b.tx.rolledBack {
		t.Fatalf("expected wrapped commit error and rollback got %v %+v", err, b.tx)
	}
}
