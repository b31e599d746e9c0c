// Package credential owns account records: lookup by email and password
// changes checked against a password policy and stored as bcrypt hashes.
//
// The password reset workflow depends only on the Service interface, so the
// local implementation can be swapped for a remote identity provider.
package credential
