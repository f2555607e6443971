package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names what happened to the ledger.
type EventKind string

const (
	TransactionCreated    EventKind = "transaction.created"
	TransactionAmended    EventKind = "transaction.amended"
	TransactionRemoved    EventKind = "transaction.removed"
	AccountCreated        EventKind = "account.created"
	AccountDeleted        EventKind = "account.deleted"
	TransactionsGenerated EventKind = "transactions.generated"
)

func (k EventKind) Valid() bool {
	switch k {
	case TransactionCreated, TransactionAmended, TransactionRemoved,
		AccountCreated, AccountDeleted, TransactionsGenerated:
		return true
	}
	return false
}

// LedgerEventMessage is published after a ledger change commits. It carries
// ids only; consumers read current state from the database.
type LedgerEventMessage struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	AccountID     int64     `json:"account_id"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Count         int       `json:"count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(kind EventKind, accountID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransactionEvent builds a message about a single transaction.
func NewTransactionEvent(kind EventKind, accountID, transactionID int64) *LedgerEventMessage {
	msg := NewLedgerEventMessage(kind, accountID)
	msg.TransactionID = transactionID
	return msg
}

// NewGeneratedEvent builds a message about a committed bulk load.
func NewGeneratedEvent(accountID int64, count int) *LedgerEventMessage {
	msg := NewLedgerEventMessage(TransactionsGenerated, accountID)
	msg.Count = count
	return msg
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and validates a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.AccountID <= 0 {
		return nil, fmt.Errorf("invalid account id %d", msg.AccountID)
	}
	return &msg, nil
}
