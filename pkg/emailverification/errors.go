package emailverification

import "errors"

var (
	// ErrNotFound is returned when no verification record exists for a key
	ErrNotFound = errors.New("verification record not found")

	// ErrCodeExpired is returned when a code is confirmed after it expired
	ErrCodeExpired = errors.New("verification code has expired")

	// ErrCodeMismatch is returned when the submitted code is wrong
	ErrCodeMismatch = errors.New("verification code does not match")

	// ErrTooManyAttempts is returned when the code was guessed wrong too often
	ErrTooManyAttempts = errors.New("too many incorrect verification attempts")

	// ErrAlreadyVerified is returned when the email was verified recently
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrRateLimitExceeded is returned when a code is requested again too soon
	ErrRateLimitExceeded = errors.New("verification code requested too recently, please try again later")

	// ErrDeliveryFailed is returned when the code email could not be sent
	ErrDeliveryFailed = errors.New("failed to deliver verification email")
)
