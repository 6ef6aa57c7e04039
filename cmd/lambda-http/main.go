package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"casa-backend/internal/bootstrap"
	"casa-backend/internal/shared/config"
	"casa-backend/internal/shared/telemetry"
)

type routerFactory func(ctx context.Context) (*gin.Engine, error)

// proxy builds the router once per execution environment and replays API
// Gateway v2 events through it. A failed build is retried on the next
// invocation, so one cold-start outage does not poison a warm container.
type proxy struct {
	build   routerFactory
	mu      sync.Mutex
	adapter *ginadapter.GinLambdaV2
}

func (p *proxy) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	adapter, err := p.ensure(ctx)
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error(), "path": req.RawPath})
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusServiceUnavailable,
			Body:       `{"error":"service unavailable"}`,
			Headers:    map[string]string{"Content-Type": "application/json", "Retry-After": "5"},
		}, nil
	}
	return adapter.ProxyWithContext(ctx, req)
}

func (p *proxy) ensure(ctx context.Context) (*ginadapter.GinLambdaV2, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adapter != nil {
		return p.adapter, nil
	}
	router, err := p.build(ctx)
	if err != nil {
		return nil, err
	}
	p.adapter = ginadapter.NewV2(router)
	return p.adapter, nil
}

func buildRouter(ctx context.Context) (*gin.Engine, error) {
	app, err := bootstrap.Build(ctx, config.Load())
	if err != nil {
		return nil, err
	}
	return app.Router, nil
}

func main() {
	p := &proxy{build: buildRouter}
	lambda.Start(p.handle)
}
