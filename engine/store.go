package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	jerrors "github.com/juju/errors"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/mistermingming/ProcurementManagement/util/log"
)

// Store owns the SQLite handle shared by all request workers. It is
// constructed once at startup and passed to every component explicitly.
type Store struct {
	db  *sql.DB
	reg *Registry
}

func Open(path string, reg *Registry) (*Store, error) {
	// _txlock=immediate takes the write lock when a transaction begins, so
	// concurrent writers queue on the busy timeout instead of deadlocking on
	// a read-to-write lock upgrade after their validation reads.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, jerrors.Trace(err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, jerrors.Annotatef(err, "open %s", path)
	}

	s := &Store{db: db, reg: reg}
	if err = s.createTables(); err != nil {
		db.Close()
		return nil, jerrors.Trace(err)
	}
	if err = s.seedTables(); err != nil {
		db.Close()
		return nil, jerrors.Trace(err)
	}
	log.Info("store opened, path[%s] tables[%d]", path, len(reg.All()))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Registry() *Registry {
	return s.reg
}

func (s *Store) columnDDL(c *Column) string {
	switch c.Kind {
	case ColPrice:
		return c.Name + " REAL NOT NULL"
	case ColRefID:
		ref, ok := s.reg.Lookup(c.RefTable)
		if !ok {
			panic("schema references unknown table: " + c.RefTable)
		}
		return fmt.Sprintf("%s INTEGER NOT NULL REFERENCES %s(id)", c.Name, ref.SQLName)
	default:
		return c.Name + " TEXT NOT NULL"
	}
}

func (s *Store) createTables() error {
	for _, schema := range s.reg.All() {
		cols := make([]string, 0, len(schema.Columns)+1)
		cols = append(cols, "id INTEGER PRIMARY KEY AUTOINCREMENT")
		for i := range schema.Columns {
			cols = append(cols, s.columnDDL(&schema.Columns[i]))
		}
		ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
			schema.SQLName, strings.Join(cols, ", "))
		if _, err := s.db.Exec(ddl); err != nil {
			return jerrors.Annotatef(err, "create table %s", schema.SQLName)
		}
	}

	quoteDDL := []string{
		`CREATE TABLE IF NOT EXISTS quotes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT NOT NULL,
			customer TEXT NOT NULL,
			total REAL NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quote_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			quote_id INTEGER NOT NULL REFERENCES quotes(id),
			option_table TEXT NOT NULL,
			label TEXT NOT NULL,
			price REAL NOT NULL
		)`,
	}
	for _, ddl := range quoteDDL {
		if _, err := s.db.Exec(ddl); err != nil {
			return jerrors.Trace(err)
		}
	}
	return nil
}

// seedTables fills read-only tables on first start. A seeded table that
// already holds rows is left alone.
func (s *Store) seedTables() error {
	for _, schema := range s.reg.All() {
		if len(schema.Seed) == 0 {
			continue
		}
		var count int
		row := s.db.QueryRow("SELECT COUNT(*) FROM " + schema.SQLName)
		if err := row.Scan(&count); err != nil {
			return jerrors.Trace(err)
		}
		if count > 0 {
			continue
		}
		stmt := insertStmt(schema)
		for _, seed := range schema.Seed {
			args := make([]interface{}, 0, len(schema.Columns))
			for _, c := range schema.Columns {
				args = append(args, seed[c.Name])
			}
			if _, err := s.db.Exec(stmt, args...); err != nil {
				return jerrors.Annotatef(err, "seed table %s", schema.SQLName)
			}
		}
		log.Info("seeded table %s with %d rows", schema.SQLName, len(schema.Seed))
	}
	return nil
}

func insertStmt(schema *TableSchema) string {
	names := schema.ColumnNames()
	marks := strings.Repeat("?, ", len(names))
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.SQLName, strings.Join(names, ", "), marks[:len(marks)-2])
}

func sortClause(schema *TableSchema) string {
	return strings.Join(append(append([]string{}, schema.SortBy...), "id"), ", ")
}

func isConstraintErr(err error) bool {
	se, ok := jerrors.Cause(err).(sqlite3.Error)
	return ok && se.Code == sqlite3.ErrConstraint
}

// queryer runs reads either on the raw handle or inside a transaction.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
