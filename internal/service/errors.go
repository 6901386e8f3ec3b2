package service

// Fault codes. Callers can branch on the code (e.g. retry with backoff on
// WORKER_UNREACHABLE); the gateway itself never retries.
const (
	CodeWorkerUnreachable  = "WORKER_UNREACHABLE"
	CodeWorkerFault        = "WORKER_FAULT"
	CodeEmptyArtifact      = "EMPTY_ARTIFACT"
	CodeStorageWriteFailed = "STORAGE_WRITE_FAILED"
)

// Fault is the single error type crossing the service boundary. The handler
// converts it to the uniform 500 shape; the correlation id rides along so
// caller-side and gateway-side logs can be reconciled even on failure.
type Fault struct {
	Code          string
	Message       string
	CorrelationID string
	Err           error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return f.Code + ": " + f.Message + ": " + f.Err.Error()
	}
	return f.Code + ": " + f.Message
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func newFault(code, correlationID, message string, err error) *Fault {
	return &Fault{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		Err:           err,
	}
}
