package model

import (
	"bytes"
	"encoding/json"
)

// Record is one opaque log or crash entry retrieved from a source.
// Body is the record's JSON encoding and is never inspected.
type Record struct {
	Source string          // source name (e.g. "s3", "bigquery")
	Body   json.RawMessage // JSON value as retrieved
}

// Line returns the record compacted onto a single line with no trailing newline.
func (r Record) Line() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, r.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
