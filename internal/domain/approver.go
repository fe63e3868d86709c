package domain

import "time"

// Approver is a human allowed to decide approval requests from a card.
type Approver struct {
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}
