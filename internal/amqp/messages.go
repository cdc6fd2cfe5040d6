package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	OperationUpsert = "upsert"
	OperationDelete = "delete"
)

// TransactionSyncMessage tells the mirror worker that a transaction changed.
// It carries only the ID; the worker reads the current row from the store.
type TransactionSyncMessage struct {
	MessageID     string    `json:"message_id"`
	TransactionID int64     `json:"transaction_id"`
	Operation     string    `json:"operation"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(transactionID int64, operation string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		MessageID:     uuid.NewString(),
		TransactionID: transactionID,
		Operation:     operation,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON decodes and validates a message body.
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID <= 0 {
		return nil, fmt.Errorf("invalid transaction id %d", msg.TransactionID)
	}
	switch msg.Operation {
	case OperationUpsert, OperationDelete:
	default:
		return nil, fmt.Errorf("unknown operation %q", msg.Operation)
	}
	return &msg, nil
}
