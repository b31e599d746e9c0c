package api

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/eduverse/accountd/pkg/emailverification"
	"github.com/eduverse/accountd/pkg/errors"
	"github.com/eduverse/accountd/pkg/identitykey"
	"github.com/eduverse/accountd/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// VerificationService is the part of the email verification service the
// handlers call.
type VerificationService interface {
	SendCode(ctx context.Context, email, name string) (*emailverification.SendResult, error)
	ConfirmCode(ctx context.Context, email, code string) error
	CodeTTL() time.Duration
}

// Handler serves the verification code endpoints
type Handler struct {
	service VerificationService
}

// NewHandler creates a new email verification API handler
func NewHandler(service VerificationService) *Handler {
	return &Handler{service: service}
}

// Routes registers the handlers on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/send-verification", h.SendVerification)
	r.Post("/verify-code", h.VerifyCode)
}

// SendVerification handles POST /send-verification
func (h *Handler) SendVerification(w http.ResponseWriter, r *http.Request) {
	var req SendVerificationRequest
	if verr := utils.DecodeValidate(r.Body, &req); verr != nil {
		utils.WriteError(w, r, verr)
		return
	}

	_, err := h.service.SendCode(r.Context(), req.Email, req.Name)
	if err != nil {
		var apiErr *errors.Error
		switch {
		case stderrors.Is(err, identitykey.ErrInvalidEmail):
			apiErr = errors.InvalidInput("email", "must contain @")
		case stderrors.Is(err, emailverification.ErrRateLimitExceeded):
			apiErr = errors.New(errors.ErrCodeRateLimited, "Please wait a minute before requesting another code")
		case stderrors.Is(err, emailverification.ErrAlreadyVerified):
			apiErr = errors.New(errors.ErrCodeAlreadyVerified, "Email is already verified")
		case stderrors.Is(err, emailverification.ErrDeliveryFailed):
			apiErr = errors.Wrap(err, errors.ErrCodeUpstream, "Failed to send verification email")
		default:
			slog.Error("Failed to send verification code", "email", utils.MaskEmail(req.Email), "err", err)
			apiErr = errors.Internal(err, "An error occurred while sending the verification code")
		}
		utils.WriteError(w, r, apiErr)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SendVerificationResponse{
		Success:          true,
		Message:          "Verification code sent",
		ExpiresInMinutes: int(h.service.CodeTTL().Minutes()),
	})
}

// VerifyCode handles POST /verify-code
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if verr := utils.DecodeValidate(r.Body, &req); verr != nil {
		utils.WriteError(w, r, verr)
		return
	}

	err := h.service.ConfirmCode(r.Context(), req.Email, req.Code)
	if err != nil {
		var apiErr *errors.Error
		switch {
		case stderrors.Is(err, identitykey.ErrInvalidEmail):
			apiErr = errors.InvalidInput("email", "must contain @")
		case stderrors.Is(err, emailverification.ErrNotFound):
			apiErr = errors.New(errors.ErrCodeCodeNotFound, "No verification code was requested for this email")
		case stderrors.Is(err, emailverification.ErrCodeMismatch):
			apiErr = errors.New(errors.ErrCodeCodeMismatch, "Incorrect verification code")
		case stderrors.Is(err, emailverification.ErrCodeExpired):
			apiErr = errors.New(errors.ErrCodeVerificationExpired, "Verification code has expired, please request a new one")
		case stderrors.Is(err, emailverification.ErrTooManyAttempts):
			apiErr = errors.New(errors.ErrCodeRateLimited, "Too many incorrect attempts, please request a new code")
		case stderrors.Is(err, emailverification.ErrAlreadyVerified):
			apiErr = errors.New(errors.ErrCodeAlreadyVerified, "Email is already verified")
		default:
			slog.Error("Failed to verify code", "email", utils.MaskEmail(req.Email), "err", err)
			apiErr = errors.Internal(err, "An error occurred while verifying the code")
		}
		utils.WriteError(w, r, apiErr)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, VerifyCodeResponse{
		Success: true,
		Message: "Email verified successfully",
	})
}
