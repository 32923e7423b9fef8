// Package ctlog decodes the Certificate Transparency log list published by
// log list distributors (log_list.json, version 2 of the schema).
package ctlog

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

type LogList struct {
	Version          string     `json:"version,omitempty"`
	LogListTimestamp *time.Time `json:"log_list_timestamp,omitempty"`
	Operators        []Operator `json:"operators"`
}

type Operator struct {
	// Name of this log operator
	Name string `json:"name"`
	// CT log operator email addresses
	Email []string `json:"email"`
	// Details of Certificate Transparency logs run by this operator
	Logs []Log `json:"logs"`
}

type Log struct {
	// Description of the CT log
	Description string `json:"description"`
	// The public key of the CT log
	Key string `json:"key"`
	// The SHA-256 hash of the CT log's public key, base64-encoded
	LogID string `json:"log_id"`
	// The Maximum Merge Delay, in seconds
	MMD uint64 `json:"mmd"`
	// The base URL of the CT log's HTTP API
	URL string `json:"url"`
	// The domain name of the CT log's DNS API
	DNS string `json:"dns,omitempty"`
	// The log will only accept certificates that expire between these dates
	TemporalInterval *TemporalInterval `json:"temporal_interval,omitempty"`
	// The purpose of this log, e.g. test.
	LogType LogType `json:"log_type,omitempty"`
	// The state of the log from the log list distributor's perspective
	State *State `json:"state,omitempty"`
}

type TemporalInterval struct {
	// All certificates must expire on this date or later
	StartInclusive time.Time `json:"start_inclusive"`
	// All certificates must expire before this date
	EndExclusive time.Time `json:"end_exclusive"`
}

type LogType string

const (
	LogTypeProd LogType = "prod"
	LogTypeTest LogType = "test"
)

func (t *LogType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch LogType(s) {
	case LogTypeProd, LogTypeTest:
		*t = LogType(s)
		return nil
	}
	return errors.Errorf("unknown log type %q", s)
}

type FinalTreeHead struct {
	TreeSize       uint64 `json:"tree_size"`
	SHA256RootHash string `json:"sha256_root_hash"`
}

type StateKind string

const (
	StatePending   StateKind = "pending"
	StateQualified StateKind = "qualified"
	StateUsable    StateKind = "usable"
	StateReadOnly  StateKind = "readonly"
	StateRetired   StateKind = "retired"
	StateRejected  StateKind = "rejected"
)

var stateKinds = []StateKind{StatePending, StateQualified, StateUsable, StateReadOnly, StateRetired, StateRejected}

// State is encoded as an object with exactly one key naming the state, for
// example {"usable": {"timestamp": "2020-05-01T00:00:00Z"}}.
type State struct {
	Kind StateKind
	// The time at which the log entered this state
	Timestamp time.Time
	// Set only for StateReadOnly: the tree head at which the log was frozen
	FinalTreeHead *FinalTreeHead
}

type stateBody struct {
	Timestamp     time.Time      `json:"timestamp"`
	FinalTreeHead *FinalTreeHead `json:"final_tree_head,omitempty"`
}

func (s *State) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return errors.Errorf("log state must have exactly one key, found %d", len(raw))
	}
	for _, kind := range stateKinds {
		body, ok := raw[string(kind)]
		if !ok {
			continue
		}
		var sb stateBody
		if err := json.Unmarshal(body, &sb); err != nil {
			return errors.Wrapf(err, "cannot decode %s state", kind)
		}
		if kind == StateReadOnly && sb.FinalTreeHead == nil {
			return errors.New("readonly state has no final_tree_head")
		}
		if kind != StateReadOnly {
			sb.FinalTreeHead = nil
		}
		*s = State{Kind: kind, Timestamp: sb.Timestamp, FinalTreeHead: sb.FinalTreeHead}
		return nil
	}
	for k := range raw {
		return errors.Errorf("unknown log state %q", k)
	}
	return nil
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]stateBody{
		string(s.Kind): {Timestamp: s.Timestamp, FinalTreeHead: s.FinalTreeHead},
	})
}

// Decode reads a log list from r.
func Decode(r io.Reader) (*LogList, error) {
	var list LogList
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, errors.Wrap(err, "cannot decode log list")
	}
	return &list, nil
}

// ReadFile reads the log list stored at path.
func ReadFile(path string) (*LogList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open log list")
	}
	defer f.Close()
	return Decode(f)
}

// LogCount returns the number of logs across all operators.
func (l *LogList) LogCount() int {
	n := 0
	for _, op := range l.Operators {
		n += len(op.Logs)
	}
	return n
}
