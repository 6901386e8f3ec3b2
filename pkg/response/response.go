package response

import "github.com/gofiber/fiber/v2"

// ValidationErrorResponse is the body of every 400.
type ValidationErrorResponse struct {
	Message string `json:"message"`
}

// FaultResponse is the uniform body of every 5xx. CorrelationID is present
// whenever one was minted before the fault; callers must not assume it is.
type FaultResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func ValidationError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ValidationErrorResponse{
		Message: message,
	})
}

func Fault(c *fiber.Ctx, code, message, correlationID string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(FaultResponse{
		Error:         code,
		Message:       message,
		CorrelationID: correlationID,
	})
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(FaultResponse{
		Error:   "UNAUTHORIZED",
		Message: message,
	})
}

func RateLimited(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(FaultResponse{
		Error:   "RATE_LIMITED",
		Message: "Rate limit exceeded",
	})
}
