package agent

// RequestType is the closed set of categories a user message maps to.
type RequestType string

const (
	RequestHealthConsultation RequestType = "health_consultation"
	RequestSimpleQuery        RequestType = "simple_query"
	RequestReminderManagement RequestType = "reminder_management"
	RequestActivityLog        RequestType = "activity_log"
	RequestGeneralChat        RequestType = "general_chat"
)

// ParseRequestType maps a string onto a RequestType.
func ParseRequestType(s string) (RequestType, bool) {
	switch RequestType(s) {
	case RequestHealthConsultation, RequestSimpleQuery, RequestReminderManagement,
		RequestActivityLog, RequestGeneralChat:
		return RequestType(s), true
	}
	return "", false
}

// Priority ranks an insight.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Suggestion is a proposed care reminder setting.
type Suggestion struct {
	Title          string   `json:"title"`
	Type           string   `json:"type"`
	SuggestedTimes []string `json:"suggested_times,omitempty"`
	Frequency      string   `json:"frequency,omitempty"`
	Reason         string   `json:"reason,omitempty"`
}

// Insight is a derived observation about the cat's wellbeing.
type Insight struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority"`
	Actionable  bool     `json:"actionable"`
}

// Reply is the externally visible result of one agent turn.
type Reply struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	RequestType  RequestType  `json:"request_type"`
	SessionID    string       `json:"session_id"`
	ProcessingMS int64        `json:"processing_time_ms"`
	Suggestions  []Suggestion `json:"suggestions"`
	Insights     []Insight    `json:"insights"`
}
