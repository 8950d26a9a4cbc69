package history

import (
	"encoding/json"
	"strings"

	"github.com/hpungsan/emolens/internal/sentiment"
)

// MaxHistory is the default cap on the number of stored records.
const MaxHistory = 100

// SlotKey names the persisted slot holding the log.
const SlotKey = "sentimentHistory"

// Record is one analysis outcome. Result and Error are mutually exclusive.
type Record struct {
	SelectedText string            `json:"selectedText"`
	Result       *sentiment.Scores `json:"result"`
	Error        *string           `json:"error"`
}

// Log is an ordered sequence of records, oldest first.
type Log []Record

// NewSuccess builds a record for a successful analysis.
func NewSuccess(text string, scores sentiment.Scores) Record {
	s := scores.Clone()
	return Record{SelectedText: text, Result: &s}
}

// NewFailure builds a record for a failed analysis.
func NewFailure(text, msg string) Record {
	return Record{SelectedText: text, Error: &msg}
}

// Valid reports whether the record carries emotion scores.
func (r Record) Valid() bool {
	return r.Result != nil
}

// HasText reports whether the record carries a non-blank selection.
func (r Record) HasText() bool {
	return strings.TrimSpace(r.SelectedText) != ""
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := Record{SelectedText: r.SelectedText}
	if r.Result != nil {
		s := r.Result.Clone()
		out.Result = &s
	}
	if r.Error != nil {
		e := *r.Error
		out.Error = &e
	}
	return out
}

// Latest returns the most recently appended record.
func (l Log) Latest() (Record, bool) {
	if len(l) == 0 {
		return Record{}, false
	}
	return l[len(l)-1], true
}

// LatestValid returns the most recent record that carries scores.
func (l Log) LatestValid() (Record, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Valid() {
			return l[i], true
		}
	}
	return Record{}, false
}

// decodeLog decodes a persisted slot value entry by entry.
// An entry that fails to decode is kept as an empty, invalid record
// so one corrupt entry never hides the rest.
func decodeLog(raw string) (Log, error) {
	if strings.TrimSpace(raw) == "" {
		return Log{}, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}

	out := make(Log, 0, len(entries))
	for _, entry := range entries {
		var r Record
		if err := json.Unmarshal(entry, &r); err != nil {
			r = lenientRecord(entry)
		}
		out = append(out, r)
	}
	return out, nil
}

// lenientRecord salvages the selected text from an entry whose other fields are malformed.
func lenientRecord(entry json.RawMessage) Record {
	var partial struct {
		SelectedText string `json:"selectedText"`
	}
	_ = json.Unmarshal(entry, &partial)
	return Record{SelectedText: partial.SelectedText}
}
