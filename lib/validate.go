package lib

import (
	"fmt"

	"github.com/warelink/wpmsync/models"
)

var allowedMethods = map[string]bool{
	"": true, "GET": true, "POST": true, "PUT": true, "DELETE": true, "PATCH": true,
}

// ValidateConfig checks the config before any network or database activity.
// A violation here is fatal for the run: a malformed endpoint schema would
// otherwise surface as confusing per-row failures, and an unknown dynamic
// keyword would silently send the literal DYNAMIC: string to the API.
func ValidateConfig(cfg models.SyncConfig) error {
	if cfg.Server == "" {
		return fmt.Errorf("missing required field: server")
	}
	if cfg.LoginPath == "" {
		return fmt.Errorf("missing required field: login_path")
	}
	if cfg.Credentials.Username == "" {
		return fmt.Errorf("missing required field: credentials.username")
	}
	if len(cfg.Endpoints) == 0 {
		return fmt.Errorf("missing required field: endpoints")
	}

	for _, ep := range cfg.Endpoints {
		if err := validateEndpoint(ep); err != nil {
			return fmt.Errorf("endpoint %s: %w", ep.Name, err)
		}
	}
	return nil
}

func validateEndpoint(ep models.EndpointConfig) error {
	if ep.Name == "" {
		return fmt.Errorf("missing required field: name")
	}
	if ep.URI == "" {
		return fmt.Errorf("missing required field: uri")
	}
	if !allowedMethods[ep.Method] {
		return fmt.Errorf("unsupported method %q", ep.Method)
	}

	for name, value := range ep.Parameters {
		if !value.Object && !IsKnownDynamic(value.Raw) {
			return fmt.Errorf("parameter %s uses unknown dynamic keyword %q", name, value.Raw)
		}
	}

	if ep.TargetTable == "" {
		return nil
	}

	if len(ep.TableSchema) == 0 {
		return fmt.Errorf("target_table %s declared without a table_schema", ep.TargetTable)
	}
	if len(ep.FieldMappings) == 0 {
		return fmt.Errorf("target_table %s declared without field_mappings", ep.TargetTable)
	}

	mapped := make(map[string]bool, len(ep.FieldMappings))
	for sourceField, column := range ep.FieldMappings {
		if _, ok := models.ColumnByName(ep.TableSchema, column); !ok {
			return fmt.Errorf("field %s maps to column %s which is not in the table schema", sourceField, column)
		}
		mapped[column] = true
	}

	keys := models.PrimaryKeyColumns(ep.TableSchema)
	if len(keys) == 0 {
		return fmt.Errorf("table schema for %s declares no primary key columns", ep.TargetTable)
	}
	for _, key := range keys {
		if mapped[key.Name] {
			continue
		}
		if ep.Incremental != nil && ep.Incremental.DateColumn == key.Name {
			continue
		}
		return fmt.Errorf("primary key column %s has no field mapping", key.Name)
	}

	if ep.Incremental != nil {
		col, ok := models.ColumnByName(ep.TableSchema, ep.Incremental.DateColumn)
		if !ok {
			return fmt.Errorf("incremental date_column %s is not in the table schema", ep.Incremental.DateColumn)
		}
		if !col.PrimaryKey {
			return fmt.Errorf("incremental date_column %s must be part of the primary key", ep.Incremental.DateColumn)
		}
	}

	return nil
}
