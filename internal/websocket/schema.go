package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionVisit     Action = "visit"
	ActionAnswer    Action = "answer"
	ActionMark      Action = "mark"
	ActionClear     Action = "clear"
	ActionViolation Action = "violation"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// QuestionRequest addresses a single question for visit, answer, mark
// and clear actions. Answer carries the selected option or code body.
type QuestionRequest struct {
	Action     Action `json:"action"`
	Section    string `json:"section"`
	QuestionID int    `json:"question_id"`
	Answer     string `json:"answer,omitempty"`
}

// ViolationRequest reports a single proctoring event from the client's
// detection layer.
type ViolationRequest struct {
	Action      Action   `json:"action"`
	Type        string   `json:"type"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Duration    *float64 `json:"duration,omitempty"`
}

// PingRequest keeps the connection alive.
type PingRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSaved      Event = "saved"
	EventTerminated Event = "terminated"
	EventPong       Event = "pong"
)

// SavedResponse acknowledges a state mutation with the question's new
// status.
type SavedResponse struct {
	Event      Event  `json:"event"`
	Section    string `json:"section"`
	QuestionID int    `json:"question_id"`
	Status     string `json:"status"`
}

// TerminatedResponse tells the client to lock the UI and navigate to the
// terminal view.
type TerminatedResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
