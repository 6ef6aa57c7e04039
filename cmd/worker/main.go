package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"casa-backend/internal/bootstrap"
	"casa-backend/internal/shared/config"
	"casa-backend/internal/shared/metrics"
	"casa-backend/internal/shared/telemetry"
	"casa-backend/internal/workerproc"
)

const (
	defaultRegion  = "us-east-1"
	receiveBackoff = time.Second
)

func main() {
	cfg := config.Load()

	queueURL := strings.TrimSpace(cfg.SQSQueueURL)
	if queueURL == "" {
		telemetry.Error("worker.config_missing", map[string]any{"key": "REPORT_EVENTS_QUEUE_URL"})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	region := cfg.AWSRegion
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		telemetry.Error("worker.aws_config_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	p := &poller{
		api:         sqs.NewFromConfig(awsCfg),
		queueURL:    queueURL,
		reports:     app.AnalysesService,
		concurrency: max(1, cfg.WorkerConcurrency),
		visibility:  cfg.SQSVisibilityTimeout,
		drain:       cfg.ShutdownTimeout,
	}
	telemetry.Info("worker.started", map[string]any{
		"queue":       queueURL,
		"concurrency": p.concurrency,
		"visibility":  p.visibility.String(),
	})
	if err := p.run(ctx); err != nil {
		telemetry.Warn("worker.shutdown", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("worker.stopped", nil)
}

var errDrainTimeout = errors.New("in-flight messages did not finish before the drain deadline")

// poller long-polls the report events queue and verifies messages with at
// most concurrency handlers in flight.
type poller struct {
	api         sqsAPI
	queueURL    string
	reports     workerproc.ReportSource
	concurrency int
	visibility  time.Duration
	drain       time.Duration
	waitSeconds int32
}

// run polls until ctx is done, then waits up to drain for in-flight
// handlers. Handlers run on a context that survives ctx so a shutdown
// signal does not abort a verification halfway; it is cancelled only when
// the drain deadline passes.
func (p *poller) run(ctx context.Context) error {
	work, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	var g errgroup.Group
	g.SetLimit(max(1, p.concurrency))

	wait := p.waitSeconds
	if wait == 0 {
		wait = 20
	}
	for ctx.Err() == nil {
		resp, err := p.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(p.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     wait,
			VisibilityTimeout:   int32(p.visibility.Seconds()),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err.Error()})
			select {
			case <-ctx.Done():
			case <-time.After(receiveBackoff):
			}
			continue
		}
		for _, msg := range resp.Messages {
			g.Go(func() error {
				handleMessage(work, p.api, p.queueURL, p.reports, msg)
				return nil
			})
		}
	}

	drain := p.drain
	if drain <= 0 {
		drain = 30 * time.Second
	}
	telemetry.Info("worker.draining", map[string]any{"timeout": drain.String()})
	drained := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-time.After(drain):
		cancelWork()
		<-drained
		return errDrainTimeout
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// handleMessage verifies one event. Verified and unrecoverable messages are
// deleted; anything else stays on the queue for redelivery.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, reports workerproc.ReportSource, msg sqstypes.Message) {
	metrics.IncReportEventsReceived()
	body := aws.ToString(msg.Body)

	decoded, err := workerproc.HandleMessage(ctx, reports, body)
	fields := baseFields(msg, decoded.ReportID, decoded.RequestID)
	switch {
	case err == nil:
		if deleteMessage(ctx, client, queueURL, msg, fields) {
			telemetry.Info("worker.report.verified", fields)
			metrics.IncReportEventsVerified()
		}
	case workerproc.Unrecoverable(err):
		meta := workerproc.ComputeMeta(body)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.report.dropped", fields)
		if deleteMessage(ctx, client, queueURL, msg, fields) {
			metrics.IncReportEventsDropped()
		}
	default:
		fields["error"] = err.Error()
		telemetry.Warn("worker.report.retry", fields)
		metrics.IncReportEventsFailed()
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		telemetry.Error("worker.delete_failed", withError(fields, "missing receipt handle"))
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		telemetry.Error("worker.delete_failed", withError(fields, err.Error()))
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, reportID, requestID string) map[string]any {
	fields := map[string]any{
		"report_id":      reportID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func withError(fields map[string]any, msg string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = msg
	return out
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
