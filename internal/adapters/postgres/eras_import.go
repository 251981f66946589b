package postgres

import (
    "context"
    "fmt"

    "github.com/jackc/pgx/v5"

    "kitcheck/internal/reference"
)

// Import replaces each table's rows in one transaction, so a failed import
// leaves the store as it was.
func (r *EraRepo) Import(ctx context.Context, tables []reference.Table) (err error) {
    tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil {
        return err
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback(ctx)
        } else {
            err = tx.Commit(ctx)
        }
    }()

    for _, t := range tables {
        if _, err = tx.Exec(ctx, `DELETE FROM era_references WHERE lower(subject) = lower($1) AND kind = $2`, t.Subject, string(t.Kind)); err != nil {
            return fmt.Errorf("clear %s/%s: %w", t.Subject, t.Kind, err)
        }
        for _, w := range t.Windows {
            var tier, mismatch *string
            if w.Tier != "" {
                tier = &w.Tier
            }
            if w.Mismatch != "" {
                m := string(w.Mismatch)
                mismatch = &m
            }
            if _, err = tx.Exec(ctx, `
                INSERT INTO era_references (subject, kind, value, start_year, end_year, tier, mismatch)
                VALUES ($1, $2, $3, $4, $5, $6, $7)
            `, t.Subject, string(t.Kind), w.Value, w.StartYear, w.EndYear, tier, mismatch); err != nil {
                return fmt.Errorf("insert %s/%s %s: %w", t.Subject, t.Kind, w.Value, err)
            }
        }
    }
    return nil
}
