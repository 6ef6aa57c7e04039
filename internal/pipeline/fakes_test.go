package pipeline

import (
	"context"
	"errors"

	"casa-backend/internal/koyeb"
)

var errPlatformDown = errors.New("platform down")

type fakePlatform struct {
	deployID    string
	deployErr   error
	waitErr     error
	analyze     koyeb.AnalyzeResponse
	analyzeErr  error
	morphology  koyeb.MorphologyResponse
	morphErr    error
	analyzeReqs []koyeb.AnalyzeRequest
}

func (f *fakePlatform) Deploy(context.Context, koyeb.AppSpec) (string, error) {
	return f.deployID, f.deployErr
}

func (f *fakePlatform) WaitHealthy(context.Context, string) error {
	return f.waitErr
}

func (f *fakePlatform) Analyze(_ context.Context, req koyeb.AnalyzeRequest) (koyeb.AnalyzeResponse, error) {
	f.analyzeReqs = append(f.analyzeReqs, req)
	return f.analyze, f.analyzeErr
}

func (f *fakePlatform) Morphology(context.Context, koyeb.MorphologyRequest) (koyeb.MorphologyResponse, error) {
	return f.morphology, f.morphErr
}
