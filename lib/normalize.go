package lib

import (
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Row is one record from a normalized WPMS response: source field name to
// raw JSON scalar.
type Row map[string]interface{}

// Normalize turns a parsed WPMS payload of unknown shape into a uniform
// sequence of rows. Three shapes are accepted, checked in this order:
//
//   - a JSON array: each object element is a row
//   - an object whose keys are all numeric strings ("1","2",...): each value
//     is a row (the WPMS numbered-key convention for arrays)
//   - any other object: one row
//
// The numbered-key check must run before the single-object fallback or a
// numbered-key payload would wrongly normalize to one big record. A nil
// payload yields no rows; non-object elements are skipped with a warning.
func Normalize(parsed interface{}) []Row {
	switch content := parsed.(type) {
	case nil:
		return nil
	case []interface{}:
		return collectRows(content)
	case map[string]interface{}:
		if len(content) == 0 {
			return nil
		}
		if values, ok := numberedKeyValues(content); ok {
			return collectRows(values)
		}
		return []Row{Row(content)}
	default:
		log.WithFields(log.Fields{"content": parsed}).Warn("response payload is not an object or array")
		return nil
	}
}

func collectRows(elements []interface{}) []Row {
	rows := make([]Row, 0, len(elements))
	for _, element := range elements {
		if record, ok := element.(map[string]interface{}); ok {
			rows = append(rows, Row(record))
		} else {
			log.WithFields(log.Fields{"element": element}).Warn("skipping non-object element in response array")
		}
	}
	return rows
}

// numberedKeyValues returns the object's values ordered by their numeric
// keys when every key is a numeric string.
func numberedKeyValues(object map[string]interface{}) ([]interface{}, bool) {
	type numbered struct {
		n     int
		value interface{}
	}

	ordered := make([]numbered, 0, len(object))
	for key, value := range object {
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, false
		}
		ordered = append(ordered, numbered{n, value})
	}

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].n < ordered[j].n })

	values := make([]interface{}, len(ordered))
	for i, entry := range ordered {
		values[i] = entry.value
	}
	return values, true
}
