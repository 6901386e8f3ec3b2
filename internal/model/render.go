package model

// RenderRequest is the caller-facing body of POST /render.
type RenderRequest struct {
	CompositionID string                 `json:"compositionId" validate:"required"`
	InputProps    map[string]interface{} `json:"inputProps"`
}

// RenderJob is one render request as forwarded to the worker. The gateway
// builds it once per request and never mutates it afterwards; it also serves
// as the wire body of the gateway → worker call.
type RenderJob struct {
	CompositionID string                 `json:"compositionId"`
	InputProps    map[string]interface{} `json:"inputProps"`
	CorrelationID string                 `json:"correlationId"`
	Credential    *UploadCredential      `json:"uploadCredential,omitempty"`
}

// UploadCredential lets the worker persist its own artifact directly to
// object storage. Absence is a valid state: the worker then falls back to
// returning raw bytes for the gateway to relay.
type UploadCredential struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	BucketName      string `json:"bucketName"`
}

// WorkerManifest is the worker's completion record on the self-upload path.
type WorkerManifest struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// RenderResult is the stable artifact reference returned to the caller.
type RenderResult struct {
	CorrelationID string `json:"correlationId"`
	BucketName    string `json:"bucketName"`
	Key           string `json:"key"`
	Size          int64  `json:"size"`
	URL           string `json:"url"`
}
