package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageTypeReportSaved is the type field of every message this package
// publishes.
const MessageTypeReportSaved = "report.saved"

// ErrInvalidMessage marks a delivery that can never be processed. Such
// messages are dropped rather than requeued.
var ErrInvalidMessage = errors.New("invalid report.saved message")

// ReportSavedMessage announces that a report version was stored. The worker
// loads the payload itself; the message only carries the version.
type ReportSavedMessage struct {
	Type      string    `json:"type"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportSavedMessage(version int64) *ReportSavedMessage {
	return &ReportSavedMessage{
		Type:      MessageTypeReportSaved,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ReportSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportSavedMessageFromJSON decodes and checks a delivery body. Messages
// without a type are accepted as report.saved.
func ReportSavedMessageFromJSON(data []byte) (*ReportSavedMessage, error) {
	var msg ReportSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type == "" {
		msg.Type = MessageTypeReportSaved
	}
	if msg.Type != MessageTypeReportSaved {
		return nil, fmt.Errorf("%w: unexpected type %q", ErrInvalidMessage, msg.Type)
	}
	if msg.Version <= 0 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidMessage, msg.Version)
	}
	return &msg, nil
}
