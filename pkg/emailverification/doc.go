// Package emailverification issues and confirms email verification codes and
// keeps the resulting verification records.
//
// A record is created pending when SendCode emails a 6-digit code, becomes
// verified once ConfirmCode matches it, and is consumed by a password reset
// through ConsumeIfValid and Clear. Records are keyed by identitykey keys and
// stored in memory, a JSON file or postgres.
//
//	repo, _ := emailverification.OpenRepository(emailverification.BackendPostgres,
//	    emailverification.StoreConfig{Pool: pool})
//	service := emailverification.NewEmailVerificationService(repo, manager,
//	    emailverification.WithVerificationTTL(15*time.Minute))
//
//	result, err := service.SendCode(ctx, "user@example.com", "Jane")
//	err = service.ConfirmCode(ctx, "user@example.com", "123456")
//	status, err := service.ConsumeIfValid(ctx, key, now)
package emailverification
