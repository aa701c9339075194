package engine

import (
	"context"

	jerrors "github.com/juju/errors"
)

// Row is a persisted row keyed by column name, id included.
type Row map[string]interface{}

// List returns all committed rows of the table in its canonical order:
// the schema sort key, ties broken by id ascending.
func (s *Store) List(ctx context.Context, table string) ([]Row, error) {
	schema, ok := s.reg.Lookup(table)
	if !ok {
		return nil, jerrors.Trace(ErrTableNotFound)
	}
	return s.listRows(ctx, schema)
}

func (s *Store) listRows(ctx context.Context, schema *TableSchema) ([]Row, error) {
	names := schema.ColumnNames()
	stmt := "SELECT id"
	for _, n := range names {
		stmt += ", " + n
	}
	stmt += " FROM " + schema.SQLName + " ORDER BY " + sortClause(schema)

	rs, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, jerrors.Trace(err)
	}
	defer rs.Close()

	rows := make([]Row, 0, 16)
	for rs.Next() {
		var id int64
		dests := make([]interface{}, 0, len(schema.Columns)+1)
		dests = append(dests, &id)
		for i := range schema.Columns {
			switch schema.Columns[i].Kind {
			case ColPrice:
				dests = append(dests, new(float64))
			case ColRefID:
				dests = append(dests, new(int64))
			default:
				dests = append(dests, new(string))
			}
		}
		if err = rs.Scan(dests...); err != nil {
			return nil, jerrors.Trace(err)
		}
		row := Row{"id": id}
		for i, c := range schema.Columns {
			switch v := dests[i+1].(type) {
			case *float64:
				row[c.Name] = *v
			case *int64:
				row[c.Name] = *v
			case *string:
				row[c.Name] = *v
			}
		}
		rows = append(rows, row)
	}
	if err = rs.Err(); err != nil {
		return nil, jerrors.Trace(err)
	}
	return rows, nil
}
