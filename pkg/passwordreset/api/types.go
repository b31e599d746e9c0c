package api

// ResetPasswordRequest is the body of POST /reset-password. Email shape and
// password length are checked by the workflow.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,max=254"`
	NewPassword string `json:"newPassword" validate:"required,max=128"`
}

type ResetPasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
