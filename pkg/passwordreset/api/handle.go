package api

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/eduverse/accountd/pkg/errors"
	"github.com/eduverse/accountd/pkg/passwordreset"
	"github.com/eduverse/accountd/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type Resetter interface {
	ResetPassword(ctx context.Context, req passwordreset.Request) (*passwordreset.Result, error)
}

// Handler serves POST /reset-password
type Handler struct {
	service Resetter
}

func NewHandler(service Resetter) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/reset-password", h.ResetPassword)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if verr := utils.DecodeValidate(r.Body, &req); verr != nil {
		utils.WriteError(w, r, verr)
		return
	}

	_, err := h.service.ResetPassword(r.Context(), passwordreset.Request{
		Email:       req.Email,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		var apiErr *errors.Error
		if !stderrors.As(err, &apiErr) {
			slog.Error("Password reset failed", "email", utils.MaskEmail(req.Email), "err", err)
			apiErr = errors.Internal(err, "An error occurred while resetting the password")
		}
		utils.WriteError(w, r, apiErr)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ResetPasswordResponse{
		Success: true,
		Message: "Password has been reset successfully",
	})
}
