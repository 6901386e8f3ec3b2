package service

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"mime"
	"net/http"

	"github.com/framecast/render-gateway/internal/model"
)

// workerFaultDetailLimit caps how much of a failed worker's body is carried
// into the error message.
const workerFaultDetailLimit = 64 * 1024

// resolve inspects the worker's response exactly once and takes one of two
// completion paths: a JSON manifest means the worker already persisted the
// artifact and zero artifact bytes flow through the gateway; any media type
// means the gateway relays the body to storage as a forward-only stream.
func (s *RenderService) resolve(ctx context.Context, resp *http.Response, job *model.RenderJob) (*model.RenderResult, error) {
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, workerFaultDetailLimit))
		return nil, newFault(CodeWorkerFault, job.CorrelationID, string(detail), nil)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	if mediaType == "application/json" {
		return s.resolveManifest(resp, job)
	}
	return s.resolveStream(ctx, resp, job, mediaType)
}

func (s *RenderService) resolveManifest(resp *http.Response, job *model.RenderJob) (*model.RenderResult, error) {
	var manifest model.WorkerManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, newFault(CodeWorkerFault, job.CorrelationID, "worker returned an unreadable manifest", err)
	}
	if manifest.Key == "" {
		return nil, newFault(CodeWorkerFault, job.CorrelationID, "worker manifest has no key", nil)
	}

	// The worker uploaded the artifact itself; its key and size are already
	// durable fact.
	return s.buildResult(job, manifest.Key, manifest.Size), nil
}

func (s *RenderService) resolveStream(ctx context.Context, resp *http.Response, job *model.RenderJob, mediaType string) (*model.RenderResult, error) {
	if resp.Body == nil || resp.Body == http.NoBody || resp.ContentLength == 0 {
		return nil, newFault(CodeEmptyArtifact, job.CorrelationID, "worker returned no artifact body", nil)
	}
	if s.storage == nil {
		return nil, newFault(CodeStorageWriteFailed, job.CorrelationID, "object storage is not configured", nil)
	}

	key := job.CorrelationID + extensionFor(mediaType)

	size, err := s.storage.Upload(ctx, key, resp.Body, mediaType)
	if err != nil {
		return nil, newFault(CodeStorageWriteFailed, job.CorrelationID, "failed to persist artifact", err)
	}
	if size == 0 {
		return nil, newFault(CodeEmptyArtifact, job.CorrelationID, "worker artifact stream was empty", nil)
	}

	// Content-Length disagreement is informational; only a truncated stream
	// (surfaced as an upload error above) is a fault.
	if resp.ContentLength > 0 && resp.ContentLength != size {
		log.Printf("correlation %s: worker declared %d bytes, stored %d", job.CorrelationID, resp.ContentLength, size)
	}

	return s.buildResult(job, key, size), nil
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
