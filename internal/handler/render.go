package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/framecast/render-gateway/internal/config"
	"github.com/framecast/render-gateway/internal/model"
	"github.com/framecast/render-gateway/internal/service"
	"github.com/framecast/render-gateway/pkg/response"
)

type RenderHandler struct {
	service   *service.RenderService
	validator *validator.Validate
	storage   *config.StorageConfig
}

func NewRenderHandler(svc *service.RenderService, v *validator.Validate, storage *config.StorageConfig) *RenderHandler {
	return &RenderHandler{
		service:   svc,
		validator: v,
		storage:   storage,
	}
}

// Render handles POST /render. Per-request state machine:
// validate → mint correlation id → forward → resolve → respond. Any fault
// from the layers below is absorbed here and mapped to the uniform 500 shape;
// nothing escapes as an unhandled error.
func (h *RenderHandler) Render(c *fiber.Ctx) error {
	var req model.RenderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "compositionId is required.")
	}

	if err := h.validator.Struct(&req); err != nil {
		// compositionId is the only required field.
		return response.ValidationError(c, "compositionId is required.")
	}

	if req.InputProps == nil {
		req.InputProps = map[string]interface{}{}
	}

	// The correlation id exists before any external call is made; it threads
	// logs, the storage key and every payload from here on.
	correlationID := uuid.New().String()

	job := &model.RenderJob{
		CompositionID: req.CompositionID,
		InputProps:    req.InputProps,
		CorrelationID: correlationID,
		Credential:    h.uploadCredential(),
	}

	result, err := h.service.Render(c.Context(), job)
	if err != nil {
		var fault *service.Fault
		if errors.As(err, &fault) {
			return response.Fault(c, fault.Code, fault.Message, fault.CorrelationID)
		}
		return response.Fault(c, service.CodeWorkerFault, err.Error(), correlationID)
	}

	return response.OK(c, result)
}

// uploadCredential builds the delegated storage credential when the gateway
// has one. Decided fresh per request: rotated secrets apply to the next
// request, no restart needed. Absence is a valid state, not an error.
func (h *RenderHandler) uploadCredential() *model.UploadCredential {
	if h.storage == nil || !h.storage.HasCredentials() {
		return nil
	}
	return &model.UploadCredential{
		Endpoint:        h.storage.Endpoint,
		AccessKeyID:     h.storage.AccessKeyID,
		SecretAccessKey: h.storage.SecretAccessKey,
		BucketName:      h.storage.BucketName,
	}
}
