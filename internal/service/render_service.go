package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/framecast/render-gateway/internal/client"
	"github.com/framecast/render-gateway/internal/model"
)

// Forwarder routes one job to the named render worker. Implemented by
// compute.Manager; narrowed to an interface so tests can substitute doubles.
type Forwarder interface {
	Forward(ctx context.Context, job *model.RenderJob) (*http.Response, error)
}

// RenderService drives one render end to end: forward the job, negotiate the
// completion path of the worker's response, and build the artifact reference.
type RenderService struct {
	compute    Forwarder
	storage    client.StorageClient // nil when the gateway holds no credentials
	bucketName string
	publicBase string
}

func NewRenderService(compute Forwarder, storage client.StorageClient, bucketName, publicBase string) *RenderService {
	return &RenderService{
		compute:    compute,
		storage:    storage,
		bucketName: bucketName,
		publicBase: publicBase,
	}
}

// Render forwards the job and resolves the worker's response into a
// RenderResult. Every failure comes back as a *Fault carrying the job's
// correlation id.
func (s *RenderService) Render(ctx context.Context, job *model.RenderJob) (*model.RenderResult, error) {
	resp, err := s.compute.Forward(ctx, job)
	if err != nil {
		return nil, newFault(CodeWorkerUnreachable, job.CorrelationID, "render worker could not be reached", err)
	}
	defer resp.Body.Close()

	return s.resolve(ctx, resp, job)
}

// result is built only after the artifact is confirmed durable.
func (s *RenderService) buildResult(job *model.RenderJob, key string, size int64) *model.RenderResult {
	return &model.RenderResult{
		CorrelationID: job.CorrelationID,
		BucketName:    s.bucketName,
		Key:           key,
		Size:          size,
		URL:           strings.TrimSuffix(s.publicBase, "/") + "/" + key,
	}
}
