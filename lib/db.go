package lib

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// driverForConnectionString maps the connection-string scheme to the
// registered database/sql driver.
func driverForConnectionString(connectionString string) (string, error) {
	scheme, _, found := strings.Cut(connectionString, "://")
	if !found {
		return "", fmt.Errorf("invalid sql connection string: no scheme in %q", connectionString)
	}

	switch scheme {
	case "sqlserver", "mssql":
		return "sqlserver", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite", "file":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported destination database type: %s", scheme)
	}
}

// OpenDestination opens the reporting database named by the connection
// string and returns it together with the driver name, which the writer
// uses to pick its SQL dialect. One connection is opened per run and closed
// by the caller on all exit paths.
func OpenDestination(connectionString string) (*sql.DB, string, error) {
	driver, err := driverForConnectionString(connectionString)
	if err != nil {
		return nil, "", err
	}

	address := connectionString
	switch driver {
	case "sqlite3":
		address = strings.SplitN(connectionString, "://", 2)[1]
	case "mysql":
		address = strings.TrimPrefix(connectionString, "mysql://")
	}

	db, err := sql.Open(driver, address)
	if err != nil {
		return nil, "", fmt.Errorf("error opening destination database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("error connecting to destination database: %w", err)
	}

	return db, driver, nil
}
