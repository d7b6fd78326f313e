package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity kinds carried by LedgerChangedMessage.
const (
	KindTransaction = "transaction"
	KindBudget      = "budget"
	KindBill        = "bill"
	KindCategory    = "category"
	KindAppState    = "app_state"
	KindImport      = "import"
	KindReset       = "reset"
)

// Operations carried by LedgerChangedMessage.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpBulk   = "bulk"
)

// LedgerChangedMessage tells the report worker that the ledger moved.
// It only identifies the change; the worker reads current state from storage.
type LedgerChangedMessage struct {
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	EntityID  string    `json:"entity_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(kind, op, entityID string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Kind:      kind,
		Op:        op,
		EntityID:  entityID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message and rejects ones without a kind.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" {
		return nil, fmt.Errorf("ledger changed message without kind")
	}
	return &msg, nil
}
