package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"casa-backend/internal/bootstrap"
	"casa-backend/internal/shared/config"
	"casa-backend/internal/shared/metrics"
	"casa-backend/internal/shared/telemetry"
	"casa-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	reports  workerproc.ReportSource
)

func initApp() {
	cfg := config.Load()
	app, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		initErr = err
		return
	}
	reports = app.AnalysesService
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr.Error()})
		return events.SQSEventResponse{BatchItemFailures: failAll(event)}, initErr
	}
	return verifyBatch(ctx, reports, event), nil
}

// verifyBatch reports only retryable failures so that the rest of the
// batch is removed from the queue.
func verifyBatch(ctx context.Context, reports workerproc.ReportSource, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncReportEventsReceived()
		msg, err := workerproc.HandleMessage(ctx, reports, record.Body)
		fields := map[string]any{"report_id": msg.ReportID, "sqs_message_id": record.MessageId}
		switch {
		case err == nil:
			metrics.IncReportEventsVerified()
			telemetry.Info("worker.report.verified", fields)
		case workerproc.Unrecoverable(err):
			metrics.IncReportEventsDropped()
			fields["error"] = err.Error()
			telemetry.Error("worker.report.dropped", fields)
		default:
			metrics.IncReportEventsFailed()
			fields["error"] = err.Error()
			telemetry.Warn("worker.report.retry", fields)
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func failAll(event events.SQSEvent) []events.SQSBatchItemFailure {
	failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
	for _, record := range event.Records {
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return failures
}

func main() {
	lambda.Start(handler)
}
