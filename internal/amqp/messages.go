package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sync operations carried by EntrySyncMessage.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// EntrySyncMessage tells the worker to mirror one entry to the spreadsheet.
// It carries only the entry id and the operation; for upserts the worker
// fetches the current row from the database, so a stale message still
// writes fresh data.
type EntrySyncMessage struct {
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(id int64, op string) *EntrySyncMessage {
	return &EntrySyncMessage{
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *EntrySyncMessage) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("invalid entry id: %d", m.ID)
	}
	if m.Op != OpUpsert && m.Op != OpDelete {
		return fmt.Errorf("unknown sync operation: %q", m.Op)
	}
	return nil
}

func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var msg EntrySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
