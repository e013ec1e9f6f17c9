package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the lifecycle state the video API reports for a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCanceled:  {},
}

// IsTerminal reports whether the status ends polling. Statuses this build
// does not know about are treated as still in flight.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Record is one job snapshot exactly as the API returned it.
type Record map[string]any

// Decode parses a snapshot from its JSON form.
func Decode(data []byte) (Record, error) {
	var record Record
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode job snapshot: %w", err)
	}
	return record, nil
}

// Encode renders the snapshot in the registry file format: two-space
// indented JSON with a trailing newline.
func Encode(record Record) ([]byte, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode job snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// ID returns the job identifier, or "" when the snapshot has none.
func (r Record) ID() string {
	return r.stringField("id")
}

// Status returns the lifecycle state recorded in the snapshot.
func (r Record) Status() Status {
	return Status(r.stringField("status"))
}

// IsTerminal reports whether the snapshot's status ends polling.
func (r Record) IsTerminal() bool {
	return r.Status().IsTerminal()
}

// Model returns the generation model recorded in the snapshot, if any.
func (r Record) Model() string {
	return r.stringField("model")
}

// Clone returns a shallow copy safe to mutate without aliasing the original.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	cp := make(Record, len(r))
	for key, value := range r {
		cp[key] = value
	}
	return cp
}

func (r Record) stringField(key string) string {
	if r == nil {
		return ""
	}
	value, ok := r[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}
