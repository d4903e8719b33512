package model

import "time"

// User represents an application user record as stored in the `users`
// table. Each field corresponds to a column. The json tags are omitted
// because these structs are used internally by the repository layer;
// handlers define separate response types with appropriate JSON tags.
//
// A freshly registered user is unverified: EmailVerified is false and the
// verification token/expiry columns hold the pending single-use token.
// Verification clears both columns and flips EmailVerified exactly once;
// there is no path back to the unverified state.
type User struct {
	ID                 string    // users.id (uuid)
	Email              string    // users.email (unique, lowercased)
	Name               string    // users.name
	PasswordHash       string    // users.password_hash (bcrypt)
	EmailVerified      bool      // users.email_verified
	VerificationToken  string    // users.email_verification_token, "" once verified
	VerificationExpiry time.Time // users.email_verification_expires, zero once verified
	CreatedAt          time.Time // users.created_at
	UpdatedAt          time.Time // users.updated_at
}
