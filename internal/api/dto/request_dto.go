package dto

// SubmitRequest payload for POST /requests.
type SubmitRequest struct {
	Requester string `json:"requester"`
	Prompt    string `json:"prompt"`
}

// CheckTicketsRequest payload for POST /requests/check.
type CheckTicketsRequest struct {
	Requester string   `json:"requester"`
	TicketIDs []string `json:"ticket_ids"`
}
