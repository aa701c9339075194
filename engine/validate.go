package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	jerrors "github.com/juju/errors"
)

// RowValues is an untyped candidate row as decoded from a request body.
// Values are discarded after validation.
type RowValues map[string]interface{}

// validateRow checks one candidate row against the schema and returns the
// typed values in column order, ready for insertion. Columns are checked in
// schema order and the first failing column determines the reported error.
// Foreign-key lookups run on q so a replace transaction validates against
// its own view of the store.
func (s *Store) validateRow(ctx context.Context, q queryer, schema *TableSchema, row RowValues) ([]interface{}, error) {
	values := make([]interface{}, 0, len(schema.Columns))
	for i := range schema.Columns {
		col := &schema.Columns[i]
		raw := row[col.Name]
		switch col.Kind {
		case ColText:
			v, ok := parseText(raw)
			if !ok {
				return nil, &FieldError{Field: col.Name}
			}
			values = append(values, v)

		case ColPrice:
			v, ok := parsePrice(raw)
			if !ok {
				return nil, &FieldError{Field: col.Name}
			}
			values = append(values, v)

		case ColRefValue:
			v, ok := parseText(raw)
			if !ok {
				return nil, &FieldError{Field: col.Name}
			}
			ref, ok := s.reg.Lookup(col.RefTable)
			if !ok {
				return nil, jerrors.Trace(ErrTableNotFound)
			}
			exists, err := rowExists(ctx, q, ref.SQLName, col.RefColumn, v)
			if err != nil {
				return nil, jerrors.Trace(err)
			}
			if !exists {
				return nil, &RefError{Field: col.Name, RefTable: col.RefTable}
			}
			values = append(values, v)

		case ColRefID:
			id, ok := parseID(raw)
			if !ok {
				return nil, &FieldError{Field: col.Name}
			}
			ref, ok := s.reg.Lookup(col.RefTable)
			if !ok {
				return nil, jerrors.Trace(ErrTableNotFound)
			}
			exists, err := rowExists(ctx, q, ref.SQLName, "id", id)
			if err != nil {
				return nil, jerrors.Trace(err)
			}
			if !exists {
				return nil, &RefError{Field: col.Name, RefTable: col.RefTable}
			}
			values = append(values, id)
		}
	}
	return values, nil
}

func rowExists(ctx context.Context, q queryer, sqlName, column string, value interface{}) (bool, error) {
	var one int
	stmt := "SELECT 1 FROM " + sqlName + " WHERE " + column + " = ? LIMIT 1"
	err := q.QueryRowContext(ctx, stmt, value).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, jerrors.Trace(err)
	}
	return true, nil
}

func parseText(raw interface{}) (string, bool) {
	v, ok := raw.(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if len(v) == 0 {
		return "", false
	}
	return v, true
}

func parsePrice(raw interface{}) (float64, bool) {
	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func parseID(raw interface{}) (int64, bool) {
	var id int64
	switch x := raw.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		id = int64(x)
	case int:
		id = int64(x)
	case int64:
		id = x
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		id = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		id = n
	default:
		return 0, false
	}
	if id <= 0 {
		return 0, false
	}
	return id, true
}
