package util

import (
	"encoding/json"
	"os"
)

// WriteJSON writes v to filePath as indented JSON.
func WriteJSON(filePath string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// IsEmpty reports whether a raw JSON scalar is absent or blank.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
