package engine

import (
	"context"

	jerrors "github.com/juju/errors"

	"github.com/mistermingming/ProcurementManagement/util/log"
)

// ReplaceAll validates every candidate row, then deletes all existing rows of
// the table and inserts the validated set inside one transaction. On any
// failure the table keeps its pre-call content. An empty candidate set
// legitimately empties the table. Returns the number of inserted rows.
func (s *Store) ReplaceAll(ctx context.Context, table string, rows []RowValues) (int, error) {
	schema, ok := s.reg.Lookup(table)
	if !ok {
		return 0, jerrors.Trace(ErrTableNotFound)
	}
	if schema.ReadOnly {
		return 0, jerrors.Trace(ErrReadOnlyTable)
	}
	for _, row := range rows {
		if row == nil {
			return 0, jerrors.Trace(ErrInvalidRows)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, jerrors.Trace(err)
	}
	defer tx.Rollback()

	// Validate against the transaction view so foreign-key checks and the
	// insert commit or fail together.
	validated := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values, err := s.validateRow(ctx, tx, schema, row)
		if err != nil {
			return 0, err
		}
		validated = append(validated, values)
	}

	// Child tables reference this one through NOT NULL keys, so replacing
	// the parent invalidates every child row. Clear them first in the same
	// transaction; deleting the parent first would trip the constraint.
	for _, child := range s.reg.All() {
		if child.Name == schema.Name || !child.refersTo(schema.Name) {
			continue
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+child.SQLName); err != nil {
			return 0, jerrors.Trace(err)
		}
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM "+schema.SQLName); err != nil {
		if isConstraintErr(err) {
			return 0, jerrors.Trace(ErrIntegrity)
		}
		return 0, jerrors.Trace(err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStmt(schema))
	if err != nil {
		return 0, jerrors.Trace(err)
	}
	defer stmt.Close()
	for _, values := range validated {
		if _, err = stmt.ExecContext(ctx, values...); err != nil {
			if isConstraintErr(err) {
				return 0, jerrors.Trace(ErrIntegrity)
			}
			return 0, jerrors.Trace(err)
		}
	}

	if err = tx.Commit(); err != nil {
		if isConstraintErr(err) {
			return 0, jerrors.Trace(ErrIntegrity)
		}
		return 0, jerrors.Trace(err)
	}
	log.Debug("table %s replaced, %d rows", schema.SQLName, len(validated))
	return len(validated), nil
}

// DeleteRow removes a single row by surrogate identifier.
// Returns false when no row with that id exists; nothing is mutated then.
func (s *Store) DeleteRow(ctx context.Context, table string, id int64) (bool, error) {
	schema, ok := s.reg.Lookup(table)
	if !ok {
		return false, jerrors.Trace(ErrTableNotFound)
	}
	if schema.ReadOnly {
		return false, jerrors.Trace(ErrReadOnlyTable)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+schema.SQLName+" WHERE id = ?", id)
	if err != nil {
		if isConstraintErr(err) {
			return false, jerrors.Trace(ErrIntegrity)
		}
		return false, jerrors.Trace(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, jerrors.Trace(err)
	}
	return affected > 0, nil
}
