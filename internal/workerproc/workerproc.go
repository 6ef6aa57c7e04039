// Package workerproc verifies stored reports announced by report.completed
// events. It is shared by the long-polling worker and the Lambda consumer.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"casa-backend/internal/analyses"
	"casa-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

var (
	ErrEmptyBody       = errors.New("empty message body")
	ErrDecode          = errors.New("decode message")
	ErrUnknownEvent    = errors.New("unknown event")
	ErrMissingReportID = errors.New("missing report id")
	// ErrReportMismatch means the stored report disagrees with the event.
	ErrReportMismatch = errors.New("report does not match event")
	// ErrReportInvalid means the stored report breaks its schema rules.
	ErrReportInvalid = errors.New("stored report is invalid")
)

// Unrecoverable reports whether redelivering the message can never succeed.
// Such messages are deleted instead of retried.
func Unrecoverable(err error) bool {
	for _, target := range []error{ErrEmptyBody, ErrDecode, ErrUnknownEvent, ErrMissingReportID, ErrReportMismatch, ErrReportInvalid} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if msg.Event != queue.EventReportCompleted {
		return msg, meta, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Event)
	}
	if strings.TrimSpace(msg.ReportID) == "" {
		return msg, meta, ErrMissingReportID
	}
	return msg, meta, nil
}

// ReportSource loads stored reports.
type ReportSource interface {
	Get(ctx context.Context, id string) (analyses.Report, error)
}

// HandleMessage parses a payload and checks the report it announces.
// A report that is not visible yet is returned as a retryable error.
func HandleMessage(ctx context.Context, reports ReportSource, body string) (queue.Message, error) {
	if reports == nil {
		return queue.Message{}, errors.New("report source not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return msg, err
	}

	ctx = analyses.WithRequestID(ctx, msg.RequestID)
	report, err := reports.Get(ctx, msg.ReportID)
	if err != nil {
		return msg, fmt.Errorf("load report %s: %w", msg.ReportID, err)
	}
	if report.UserID != msg.UserID || string(report.MediaType) != msg.MediaType || report.KoyebJobID != msg.KoyebJobID {
		return msg, fmt.Errorf("%w: %s", ErrReportMismatch, msg.ReportID)
	}
	if err := analyses.ValidateReport(report); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrReportInvalid, err)
	}
	return msg, nil
}
