package lib

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warelink/wpmsync/models"
	"github.com/warelink/wpmsync/util"
)

const dateLayout = "20060102"

// Coerce converts a raw JSON scalar into the typed value for its destination
// column. Null and empty-string values become SQL NULL (returned as a nil
// interface) unless the column is part of the primary key, which is a
// data-integrity error failing the row. Malformed values for numeric and
// date columns also degrade to NULL rather than aborting the batch.
func Coerce(raw interface{}, col models.ColumnDef) (interface{}, error) {
	if util.IsEmpty(raw) {
		if col.PrimaryKey {
			return nil, fmt.Errorf("primary key column %s received a null or empty value", col.Name)
		}
		return nil, nil
	}

	switch typeFamily(col.SQLType) {
	case "DATE", "DATETIME", "DATETIME2", "SMALLDATETIME", "TIMESTAMP":
		return coerceDate(raw, col), nil
	case "INT", "BIGINT", "SMALLINT", "TINYINT", "INTEGER":
		return coerceInt(raw, col), nil
	case "DECIMAL", "NUMERIC", "FLOAT", "REAL", "MONEY":
		return coerceDecimal(raw, col), nil
	default:
		return raw, nil
	}
}

// typeFamily strips any precision or scale suffix: DECIMAL(18,3) -> DECIMAL.
func typeFamily(sqlType string) string {
	family := sqlType
	if i := strings.IndexByte(family, '('); i >= 0 {
		family = family[:i]
	}
	return strings.ToUpper(strings.TrimSpace(family))
}

// coerceDate parses the WPMS 8-digit yyyyMMdd form strictly.
func coerceDate(raw interface{}, col models.ColumnDef) interface{} {
	s := rawString(raw)
	parsed, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		log.WithFields(log.Fields{"column": col.Name, "value": s}).Warn("malformed date value, writing NULL")
		return nil
	}
	return parsed
}

func coerceInt(raw interface{}, col models.ColumnDef) interface{} {
	if f, ok := raw.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	parsed, err := strconv.ParseInt(rawString(raw), 10, 64)
	if err != nil {
		log.WithFields(log.Fields{"column": col.Name, "value": raw}).Warn("malformed integer value, writing NULL")
		return nil
	}
	return parsed
}

func coerceDecimal(raw interface{}, col models.ColumnDef) interface{} {
	if f, ok := raw.(float64); ok {
		return f
	}
	parsed, err := strconv.ParseFloat(rawString(raw), 64)
	if err != nil {
		log.WithFields(log.Fields{"column": col.Name, "value": raw}).Warn("malformed decimal value, writing NULL")
		return nil
	}
	return parsed
}

func rawString(raw interface{}) string {
	if s, ok := raw.(string); ok {
		return s
	}
	if f, ok := raw.(float64); ok && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprintf("%v", raw)
}
