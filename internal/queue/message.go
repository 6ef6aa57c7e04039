package queue

import "encoding/json"

const (
	EventReportCompleted = "report.completed"
	messageVersion       = 1
)

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Event      string `json:"event"`
	ReportID   string `json:"reportId"`
	UserID     string `json:"userId"`
	MediaType  string `json:"mediaType"`
	KoyebJobID string `json:"koyebJobId"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewReportCompleted builds a report.completed event.
func NewReportCompleted(reportID, userID, mediaType, jobID, requestID, enqueuedAt string) Message {
	return Message{
		Event:      EventReportCompleted,
		ReportID:   reportID,
		UserID:     userID,
		MediaType:  mediaType,
		KoyebJobID: jobID,
		RequestID:  requestID,
		EnqueuedAt: enqueuedAt,
		Version:    messageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
