package types

// Client -> Server
//
// join:          {} (player taken from the connection)
// submit_choice: choice: "heads" | "tails"
// submit_power:  power: number, clamped server-side to the configured range
// commit_flip:   {}
type ClientMessage struct {
	Type   string `json:"type"`
	Choice string `json:"choice,omitempty"`
	Power  int    `json:"power,omitempty"`
}

// Server -> Client rejection echo. Broadcast events themselves are
// broadcast.Event envelopes; this one goes only to the offending sender.
type ErrorMessage struct {
	Type   string `json:"type"` // always "rejected"
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Enumerated rejection reasons; clients key UX off these, never off raw
// error text.
const (
	ReasonInvalidPhase     = "invalid_phase"
	ReasonNotParticipant   = "not_participant"
	ReasonWrongTurn        = "wrong_turn"
	ReasonNoChoice         = "no_choice"
	ReasonAlreadyCommitted = "already_committed"
	ReasonMatchFull        = "match_full"
	ReasonEliminated       = "eliminated"
	ReasonBadChoice        = "bad_choice"
	ReasonBadMessage       = "bad_message"
)
