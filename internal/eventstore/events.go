package eventstore

import (
	"encoding/json"
	"fmt"
)

// Event types recorded for every reconciliation run.
const (
	TypeRunStarted         = "RunStarted"
	TypePlanComputed       = "PlanComputed"
	TypeTransactionApplied = "TransactionApplied"
	TypeTransactionSkipped = "TransactionSkipped"
	TypeStateCommitted     = "StateCommitted"
	TypeRunFailed          = "RunFailed"
)

// RunStarted marks the beginning of a run.
type RunStarted struct {
	Trigger    string `json:"trigger"`
	EntriesDir string `json:"entries_dir"`
	StatePath  string `json:"state_path"`
}

// PlanComputed records the difference between desired and recorded sets.
type PlanComputed struct {
	Desired   int      `json:"desired"`
	Recorded  int      `json:"recorded"`
	ToInstall []string `json:"to_install"`
	ToRemove  []string `json:"to_remove"`
}

// TransactionApplied records a transaction that ran.
type TransactionApplied struct {
	Queued    int  `json:"queued"`
	Satisfied int  `json:"satisfied"`
	Executed  bool `json:"executed"`
}

// TransactionSkipped records a run whose plan was empty.
type TransactionSkipped struct {
	Reason string `json:"reason"`
}

// StateCommitted records the entry count of the newly committed state.
type StateCommitted struct {
	Entries int `json:"entries"`
}

// RunFailed records the error that ended a run.
type RunFailed struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Record describes one event ready to be appended.
type Record struct {
	Type    string
	Payload []byte
}

func newRecord(eventType string, v any) (Record, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Record{}, wrap(ErrEventAppendFailed, fmt.Errorf("marshal %s: %w", eventType, err))
	}
	return Record{Type: eventType, Payload: payload}, nil
}

func NewRunStarted(p RunStarted) (Record, error) { return newRecord(TypeRunStarted, p) }

func NewPlanComputed(p PlanComputed) (Record, error) {
	if p.ToInstall == nil {
		p.ToInstall = []string{}
	}
	if p.ToRemove == nil {
		p.ToRemove = []string{}
	}
	return newRecord(TypePlanComputed, p)
}

func NewTransactionApplied(p TransactionApplied) (Record, error) {
	return newRecord(TypeTransactionApplied, p)
}

func NewTransactionSkipped(p TransactionSkipped) (Record, error) {
	return newRecord(TypeTransactionSkipped, p)
}

func NewStateCommitted(p StateCommitted) (Record, error) { return newRecord(TypeStateCommitted, p) }

func NewRunFailed(p RunFailed) (Record, error) { return newRecord(TypeRunFailed, p) }

// Decode unmarshals an event payload into v.
func Decode(e Event, v any) error {
	if err := json.Unmarshal(e.Payload(), v); err != nil {
		return wrap(ErrEventQueryFailed, fmt.Errorf("decode %s payload: %w", e.Type(), err))
	}
	return nil
}
