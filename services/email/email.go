package email

// Params is the send request at the collaborator boundary.
type Params struct {
	To            string   `json:"to"`
	Subject       string   `json:"subject"`
	Bullets       []string `json:"bullets"`
	NextStep      string   `json:"nextStep"`
	Transcription string   `json:"transcription,omitempty"`
}

// Result is the provider's acknowledgement of a sent message.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
