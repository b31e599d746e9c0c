package api

// SendVerificationRequest is the body of POST /send-verification
type SendVerificationRequest struct {
	Email string `json:"email" validate:"required,contains=@,max=254"`
	Name  string `json:"name" validate:"max=100"`
}

// SendVerificationResponse is returned once the code email has been sent
type SendVerificationResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ExpiresInMinutes int    `json:"expiresInMinutes"`
}

// VerifyCodeRequest is the body of POST /verify-code
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,contains=@,max=254"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// VerifyCodeResponse is returned when the code matched
type VerifyCodeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
