package db

import (
	"database/sql"
	"fmt"
	"time"
)

func nullTimeToPtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}

// checkRowsAffected maps an update that matched no rows to ErrNotFound. Repo
// methods use it so callers see the same sentinel for a missing account as
// for a missing row on lookup.
func checkRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
