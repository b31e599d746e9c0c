// Package passwordreset changes an account password once the email owner has
// proven control of the address through a fresh verification record.
//
// A reset runs rate check, verification check, account lookup and password
// update in that order. The password update is the commit point: nothing
// before it has side effects except deleting an expired verification record,
// and nothing after it can fail the reset. The bookkeeping that follows
// (recording the attempt, clearing the verification, queueing the
// password-changed email) is done by Complete, which is safe to repeat.
//
// Example:
//
//	svc := passwordreset.NewService(limiter, verifier, accounts,
//		passwordreset.WithOutbox(outbox),
//	)
//	result, err := svc.ResetPassword(ctx, passwordreset.Request{
//		Email:       "user@example.com",
//		NewPassword: "n3w-Passw0rd",
//	})
package passwordreset
