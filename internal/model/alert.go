package model

// AlertSubmission is the client-supplied portion of an alert. The hub never
// trusts anything beyond these four fields.
type AlertSubmission struct {
	Message    string `json:"message"`
	Keyword    string `json:"keyword"`
	Time       string `json:"time"`
	Transcript string `json:"transcript,omitempty"`
}

// Valid reports whether the submission carries all required fields.
func (s AlertSubmission) Valid() bool {
	return s.Message != "" && s.Keyword != "" && s.Time != ""
}

// AlertRecord is a validated submission stamped by the hub at acceptance.
// ReceivedAt and From are always server-assigned; a record is immutable
// once created.
type AlertRecord struct {
	AlertSubmission
	ReceivedAt string `json:"receivedAt"`
	From       string `json:"from"`
}

// Trigger maps a keyword substring heard in a transcript to the alert
// message sent on its behalf. Trigger tables are ordered; every trigger
// whose keyword occurs in an utterance fires.
type Trigger struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Label   string `json:"label" yaml:"label"`
}
