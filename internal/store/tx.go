package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AnyRows disables the affected-row check for an Op.
const AnyRows int64 = -1

// Op is one mutation in an atomic batch.
type Op struct {
	// Name labels the op in errors and logs.
	Name  string
	Query string
	Args  []any
	// ExpectRows is the number of rows the op must affect, or AnyRows.
	ExpectRows int64
}

// TxResult describes the outcome of ExecuteAtomic.
type TxResult struct {
	Committed    bool
	RowsAffected []int64
	// FailedOp is the index of the first failing op, or -1.
	FailedOp int
}

// ExecuteAtomic runs ops in order inside one transaction. After each op the
// affected row count is compared with its expectation; any mismatch or error
// rolls back the whole batch and returns the first error as a *StorageError.
// Concurrent callers are serialized for the full duration of a batch.
func (s *SQLiteStore) ExecuteAtomic(ctx context.Context, ops ...Op) (TxResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	res := TxResult{FailedOp: -1}

	err := s.Acquire(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return storageErr("begin transaction", err)
		}
		defer tx.Rollback()

		for i, op := range ops {
			r, err := tx.ExecContext(ctx, op.Query, op.Args...)
			if err != nil {
				res.FailedOp = i
				return storageErr(op.label(i), err)
			}
			n, err := r.RowsAffected()
			if err != nil {
				res.FailedOp = i
				return storageErr(op.label(i), err)
			}
			if op.ExpectRows != AnyRows && n != op.ExpectRows {
				res.FailedOp = i
				return storageErr(op.label(i),
					fmt.Errorf("%w: expected %d, got %d", ErrRowCountMismatch, op.ExpectRows, n))
			}
			res.RowsAffected = append(res.RowsAffected, n)
		}

		if err := tx.Commit(); err != nil {
			return storageErr("commit", err)
		}
		res.Committed = true
		return nil
	})

	s.metrics.RecordStage(ctx, "transaction", "execute", time.Since(start).Milliseconds())
	if err != nil {
		res.RowsAffected = nil
		s.logger.Debug("transaction rolled back", "failed_op", res.FailedOp, "ops", len(ops), "error", err)
		s.metrics.RecordError(ctx, "transaction", ClassifyError(err))
		return res, err
	}
	return res, nil
}

func (o Op) label(i int) string {
	if o.Name != "" {
		return fmt.Sprintf("op %d (%s)", i, o.Name)
	}
	return fmt.Sprintf("op %d", i)
}

// ownershipGuards returns ops that fail with ErrRowCountMismatch when id
// already exists in one of tables under a namespace other than namespace.
// The no-op UPDATE counts matching rows without changing them.
func ownershipGuards(col, id, namespace string, tables ...string) []Op {
	ops := make([]Op, len(tables))
	for i, t := range tables {
		ops[i] = Op{
			Name:       "check " + t + " owner",
			Query:      "UPDATE " + t + " SET " + col + " = " + col + " WHERE " + col + " = ? AND namespace <> ?",
			Args:       []any{id, namespace},
			ExpectRows: 0,
		}
	}
	return ops
}
