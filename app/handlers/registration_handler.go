package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/festgo/rbg-registration/app/dto"
	businessflow "github.com/festgo/rbg-registration/business_flow"
	"github.com/festgo/rbg-registration/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// RegistrationHandlerInterface defines the contract for registration handlers
type RegistrationHandlerInterface interface {
	Submit(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// RegistrationHandler handles registration-related HTTP requests
type RegistrationHandler struct {
	registrationFlow businessflow.RegistrationFlow
	validator        *validator.Validate
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(registrationFlow businessflow.RegistrationFlow) *RegistrationHandler {
	return &RegistrationHandler{
		registrationFlow: registrationFlow,
		validator:        validator.New(),
	}
}

func (h *RegistrationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(dto.ErrorResponse{Error: message})
}

// Submit handles a registration form submission
// @Summary Submit registration
// @Description Store a registration and notify the phone by SMS unless it was already notified
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body dto.SubmitRequest true "Registration form data"
// @Success 200 {object} dto.SubmitResponse "Registration stored"
// @Failure 400 {object} dto.ErrorResponse "Missing required fields"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/submit [post]
func (h *RegistrationHandler) Submit(c fiber.Ctx) error {
	var req dto.SubmitRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			log.Println("Submit validation failed:", getValidationErrorMessage(validationErrors[0]))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing required fields")
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestid.FromContext(c))

	ctx, cancel := h.createRequestContext(c, "/api/submit")
	defer cancel()

	result, err := h.registrationFlow.Register(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsRequiredFieldsMissing(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing required fields")
		}

		log.Println("Submit failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, errorMessage(err, "Server error"))
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// List returns the most recent registrations
// @Summary List registrations
// @Description List up to 200 most recent registrations, newest first
// @Tags Registration
// @Produce json
// @Success 200 {object} dto.ListSubmissionsResponse "Registrations"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/submit [get]
func (h *RegistrationHandler) List(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/submit")
	defer cancel()

	result, err := h.registrationFlow.ListSubmissions(ctx)
	if err != nil {
		log.Println("List submissions failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, errorMessage(err, "Server error"))
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Export downloads the most recent registrations as an Excel workbook
// @Summary Export registrations
// @Description Download up to 200 most recent registrations as xlsx
// @Tags Registration
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file "Excel file"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/submit/export [get]
func (h *RegistrationHandler) Export(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/submit/export")
	defer cancel()

	filename, data, err := h.registrationFlow.ExportSubmissions(ctx)
	if err != nil {
		log.Println("Export submissions failed:", err)
		if businessflow.IsExportFailed(err) {
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate Excel file")
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, errorMessage(err, "Server error"))
	}
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// errorMessage returns the business message of err, or fallback
func errorMessage(err error, fallback string) string {
	var be *businessflow.BusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *RegistrationHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(c, endpoint, utils.RequestTimeout)
}

func (h *RegistrationHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestid.FromContext(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)

	return ctx, cancel
}
