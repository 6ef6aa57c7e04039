package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (r *recordingSender) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	r.inputs = append(r.inputs, in)
	if r.err != nil {
		return nil, r.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSSendStandardQueue(t *testing.T) {
	api := &recordingSender{}
	client := newSQSClient(api, "https://sqs.us-east-1.amazonaws.com/1/report-events")

	msg := NewReportCompleted("r-1", "guest:g1", "photo", "", "req-1", "2026-01-01T00:00:00Z")
	require.NoError(t, client.Send(context.Background(), msg))
	require.Len(t, api.inputs, 1)

	in := api.inputs[0]
	assert.Nil(t, in.MessageGroupId)
	assert.Equal(t, "report.completed", aws.ToString(in.MessageAttributes["event"].StringValue))
	assert.Equal(t, "r-1", aws.ToString(in.MessageAttributes["reportId"].StringValue))

	decoded, err := DecodeMessage([]byte(aws.ToString(in.MessageBody)))
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestSQSSendFIFOQueueDeduplicatesPerReport(t *testing.T) {
	api := &recordingSender{}
	client := newSQSClient(api, "https://sqs.us-east-1.amazonaws.com/1/report-events.fifo")

	require.NoError(t, client.Send(context.Background(), NewReportCompleted("r-9", "google:7", "video", "job-3", "", "")))

	in := api.inputs[0]
	assert.Equal(t, "google:7", aws.ToString(in.MessageGroupId))
	assert.Equal(t, "report.completed:r-9", aws.ToString(in.MessageDeduplicationId))
}

func TestSQSSendWrapsError(t *testing.T) {
	cause := errors.New("throttled")
	client := newSQSClient(&recordingSender{err: cause}, "https://sqs/q")

	err := client.Send(context.Background(), NewReportCompleted("r-2", "u", "photo", "", "", ""))
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "r-2")
}

func TestNewSQSClientRequiresURL(t *testing.T) {
	_, err := NewSQSClient(context.Background(), "  ", "")
	require.Error(t, err)
}
