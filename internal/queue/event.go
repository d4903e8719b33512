// Package queue defines message payloads exchanged over the message broker.
package queue

// VerificationEmailEvent is published when a new account needs its
// verification mail delivered. It carries everything the consumer needs to
// render and send the message without querying the primary database.
type VerificationEmailEvent struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Token       string `json:"token"`
	RequestedAt string `json:"requested_at"`
}
