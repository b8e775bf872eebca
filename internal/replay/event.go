// Package replay feeds scripted server traffic into a [civicache.Cache].
//
// A script is JSON Lines: one [Event] per line. Blank lines and lines
// starting with '#' are skipped. Payload fields (report, reports, comment,
// comments, stats) hold raw server JSON and are decoded the way the data
// layer would decode a response.
//
//	{"op":"set_report_list","query":"map","filter":"20,0,20,0","reports":[{"id":"r-1","lat":10,"lng":10}]}
//	{"op":"create_pending_comment","bind":"c","comment":{"report_id":"r-1","body":"hola"}}
//	{"op":"confirm","kind":"comment","id":"$c","server_id":"c-900"}
//	{"op":"advance","by":"1s"}
//
// An ID starting with '$' refers to the temporary ID recorded under that
// name by an earlier create_pending_* event with "bind".
package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/calvinalkan/civicache/pkg/civicache"
)

// Event is one scripted step.
type Event struct {
	Op string `json:"op"`

	Kind     civicache.Kind `json:"kind,omitempty"`
	ID       string         `json:"id,omitempty"`
	ReportID string         `json:"report_id,omitempty"`
	ServerID string         `json:"server_id,omitempty"`
	Bind     string         `json:"bind,omitempty"`
	Query    string         `json:"query,omitempty"`
	Filter   string         `json:"filter,omitempty"`
	Field    string         `json:"field,omitempty"`
	Status   string         `json:"status,omitempty"`
	Delta    int            `json:"delta,omitempty"`
	By       string         `json:"by,omitempty"`

	Report   json.RawMessage `json:"report,omitempty"`
	Reports  json.RawMessage `json:"reports,omitempty"`
	Comment  json.RawMessage `json:"comment,omitempty"`
	Comments json.RawMessage `json:"comments,omitempty"`
	Stats    json.RawMessage `json:"stats,omitempty"`
	Patch    json.RawMessage `json:"patch,omitempty"`

	// Line is the 1-based script line, for error messages.
	Line int `json:"-"`
}

const maxLineBytes = 1 << 20

// Decode reads a whole script.
func Decode(r io.Reader) ([]Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var events []Event

	line := 0

	for scanner.Scan() {
		line++

		ev, ok, err := ParseLine(scanner.Bytes())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if !ok {
			continue
		}

		ev.Line = line
		events = append(events, ev)
	}

	err := scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("%w: reading: %w", ErrInvalidScript, err)
	}

	return events, nil
}

// ParseLine decodes one script line. It reports false for blank and
// comment lines.
func ParseLine(data []byte) (Event, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '#' {
		return Event{}, false, nil
	}

	var ev Event

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	err := dec.Decode(&ev)
	if err != nil {
		return Event{}, false, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	if ev.Op == "" {
		return Event{}, false, fmt.Errorf("%w: %w: op", ErrInvalidScript, ErrMissingField)
	}

	return ev, true, nil
}
