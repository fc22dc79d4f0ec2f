package lib

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warelink/wpmsync/models"
)

// RetrievedAtColumn records when a row was last written by a sync run. It
// is appended to every destination table that does not declare it.
const RetrievedAtColumn = "RetrievedAt"

// Writer persists typed rows into destination tables with merge semantics:
// insert a new primary key, update an existing one, never delete and never
// duplicate. Driver selects the SQL dialect.
type Writer struct {
	DB     *sql.DB
	Driver string
	Log    log.FieldLogger
}

func (w *Writer) logger() log.FieldLogger {
	if w.Log != nil {
		return w.Log
	}
	return log.StandardLogger()
}

// EnsureTable idempotently creates the destination table from its declared
// schema. Primary-key columns are NOT NULL; the composite primary key is
// the declared key columns in declaration order.
func (w *Writer) EnsureTable(table string, schema []models.ColumnDef) error {
	var defs []string
	for _, col := range withRetrievedAt(schema) {
		def := fmt.Sprintf("%s %s", col.Name, w.columnType(col.SQLType))
		if col.PrimaryKey {
			def += " NOT NULL"
		}
		if col.Default != "" {
			def += " DEFAULT " + col.Default
		}
		defs = append(defs, def)
	}

	if keys := models.PrimaryKeyColumns(schema); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, key := range keys {
			names[i] = key.Name
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(names, ", ")))
	}

	var stmt string
	if w.Driver == "sqlserver" {
		stmt = fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)", table, table, strings.Join(defs, ", "))
	} else {
		stmt = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
	}

	if _, err := w.DB.Exec(stmt); err != nil {
		return fmt.Errorf("error creating table %s: %w", table, err)
	}
	return nil
}

// Upsert writes a batch of rows to the destination table, one atomic
// update-else-insert per row. Field values are coerced per the table schema;
// extra carries pre-typed column values supplied outside the response (the
// incremental driver's date column). A failed row is logged and counted but
// never blocks the rows after it.
func (w *Writer) Upsert(table string, rows []Row, mappings map[string]string, schema []models.ColumnDef, extra map[string]interface{}, retrievedAt time.Time) (written int, failed int) {
	for _, row := range rows {
		values, err := coerceRow(row, mappings, schema, extra)
		if err == nil {
			err = w.writeRow(table, schema, values, retrievedAt)
		}
		if err != nil {
			failed++
			w.logger().WithFields(log.Fields{"table": table, "error": err}).Warn("skipping row")
			continue
		}
		written++
	}
	return written, failed
}

// coerceRow applies the field mappings and type coercion to one response
// row, returning destination column name to typed value. Every primary-key
// column must end up with a non-null value.
func coerceRow(row Row, mappings map[string]string, schema []models.ColumnDef, extra map[string]interface{}) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(mappings)+len(extra))

	for sourceField, column := range mappings {
		col, ok := models.ColumnByName(schema, column)
		if !ok {
			return nil, fmt.Errorf("mapped column %s not declared in table schema", column)
		}
		typed, err := Coerce(row[sourceField], col)
		if err != nil {
			return nil, err
		}
		values[column] = typed
	}

	for column, value := range extra {
		values[column] = value
	}

	for _, key := range models.PrimaryKeyColumns(schema) {
		if v, ok := values[key.Name]; !ok || v == nil {
			return nil, fmt.Errorf("primary key column %s has no value", key.Name)
		}
	}

	return values, nil
}

// writeRow executes the conditional write: update on a primary-key match,
// insert otherwise, both with the same typed values, inside one transaction.
func (w *Writer) writeRow(table string, schema []models.ColumnDef, values map[string]interface{}, retrievedAt time.Time) error {
	values[RetrievedAtColumn] = retrievedAt

	var columns []string
	for _, col := range withRetrievedAt(schema) {
		if _, ok := values[col.Name]; ok {
			columns = append(columns, col.Name)
		}
	}

	keys := models.PrimaryKeyColumns(schema)

	tx, err := w.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	affected, err := w.update(tx, table, columns, keys, values)
	if err != nil {
		return err
	}
	if affected == 0 {
		if err := w.insert(tx, table, columns, values); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (w *Writer) update(tx *sql.Tx, table string, columns []string, keys []models.ColumnDef, values map[string]interface{}) (int64, error) {
	keyed := make(map[string]bool, len(keys))
	for _, key := range keys {
		keyed[key.Name] = true
	}

	var sets, conditions []string
	var args []interface{}
	n := 0
	for _, column := range columns {
		if keyed[column] {
			continue
		}
		n++
		sets = append(sets, fmt.Sprintf("%s = %s", column, w.placeholder(n)))
		args = append(args, values[column])
	}
	for _, key := range keys {
		n++
		conditions = append(conditions, fmt.Sprintf("%s = %s", key.Name, w.placeholder(n)))
		args = append(args, values[key.Name])
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), strings.Join(conditions, " AND "))
	result, err := tx.Exec(stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("error updating row: %w", err)
	}
	return result.RowsAffected()
}

func (w *Writer) insert(tx *sql.Tx, table string, columns []string, values map[string]interface{}) error {
	var placeholders []string
	var args []interface{}
	for i, column := range columns {
		placeholders = append(placeholders, w.placeholder(i+1))
		args = append(args, values[column])
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := tx.Exec(stmt, args...); err != nil {
		return fmt.Errorf("error inserting row: %w", err)
	}
	return nil
}

func (w *Writer) placeholder(n int) string {
	switch w.Driver {
	case "sqlserver":
		return fmt.Sprintf("@p%d", n)
	case "postgres":
		return fmt.Sprintf("$%d", n)
	default:
		return "?"
	}
}

// columnType translates the declared SQL Server flavored column types for
// the other supported destinations.
func (w *Writer) columnType(sqlType string) string {
	if w.Driver == "sqlserver" {
		return sqlType
	}

	switch typeFamily(sqlType) {
	case "NVARCHAR", "NCHAR":
		return strings.TrimPrefix(strings.ToUpper(sqlType), "N")
	case "DATETIME", "DATETIME2", "SMALLDATETIME":
		if w.Driver == "postgres" {
			return "TIMESTAMP"
		}
		return "DATETIME"
	case "TINYINT":
		if w.Driver == "postgres" {
			return "SMALLINT"
		}
		return sqlType
	default:
		return sqlType
	}
}

func withRetrievedAt(schema []models.ColumnDef) []models.ColumnDef {
	if _, ok := models.ColumnByName(schema, RetrievedAtColumn); ok {
		return schema
	}
	return append(append([]models.ColumnDef{}, schema...), models.ColumnDef{Name: RetrievedAtColumn, SQLType: "DATETIME"})
}
