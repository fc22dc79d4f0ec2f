package models

import (
	"encoding/json"
	"fmt"
)

// SyncConfig is the parsed config JSON describing the WPMS server, the
// credentials and the set of endpoints to synchronize.
type SyncConfig struct {
	Server              string           `json:"server"`
	LoginPath           string           `json:"login_path"`
	Credentials         Credentials      `json:"credentials"`
	SQLConnectionString string           `json:"sql_connection_string,omitempty"`
	Endpoints           []EndpointConfig `json:"endpoints"`
}

type Credentials struct {
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	PasswordFile string `json:"password_file,omitempty"`
	SkipHash     bool   `json:"skip_hash,omitempty"`
}

type EndpointConfig struct {
	Name          string                `json:"name"`
	URI           string                `json:"uri"`
	Method        string                `json:"method,omitempty"`
	Parameters    map[string]ParamValue `json:"parameters,omitempty"`
	TargetTable   string                `json:"target_table,omitempty"`
	FieldMappings map[string]string     `json:"field_mappings,omitempty"`
	TableSchema   []ColumnDef           `json:"table_schema,omitempty"`
	Incremental   *IncrementalConfig    `json:"incremental,omitempty"`
}

// IncrementalConfig marks an endpoint for day-by-day import. DateColumn is
// the destination primary-key column receiving the day being processed,
// DateParameter the query parameter receiving it in yyyyMMdd form.
type IncrementalConfig struct {
	DateColumn    string `json:"date_column"`
	DateParameter string `json:"date_parameter"`
}

type ColumnDef struct {
	Name       string `json:"name"`
	SQLType    string `json:"type"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
	Default    string `json:"default,omitempty"`
}

// ParamValue is either a bare string (possibly a DYNAMIC: placeholder) or a
// {val1, sig1} comparator object, the two shapes WPMS accepts in query
// parameters.
type ParamValue struct {
	Raw    string
	Val1   string
	Sig1   string
	Object bool
}

func (p *ParamValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Raw = s
		return nil
	}

	var obj struct {
		Val1 string `json:"val1"`
		Sig1 string `json:"sig1,omitempty"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("parameter value must be a string or a {val1, sig1} object: %w", err)
	}
	p.Val1 = obj.Val1
	p.Sig1 = obj.Sig1
	p.Object = true
	return nil
}

func (p ParamValue) MarshalJSON() ([]byte, error) {
	if !p.Object {
		return json.Marshal(p.Raw)
	}
	obj := struct {
		Val1 string `json:"val1"`
		Sig1 string `json:"sig1,omitempty"`
	}{p.Val1, p.Sig1}
	return json.Marshal(obj)
}

// PrimaryKeyColumns returns the composite primary key in declaration order.
func PrimaryKeyColumns(schema []ColumnDef) []ColumnDef {
	var keys []ColumnDef
	for _, col := range schema {
		if col.PrimaryKey {
			keys = append(keys, col)
		}
	}
	return keys
}

// ColumnByName looks a column up in a table schema.
func ColumnByName(schema []ColumnDef, name string) (ColumnDef, bool) {
	for _, col := range schema {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnDef{}, false
}
