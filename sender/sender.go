// Package sender delivers finished transcripts as keystrokes: open the
// chat prompt, paste the text from the clipboard, optionally press
// enter.
package sender

// Sink receives the final text of a session. autoSend asks the sink to
// submit the message too, not just stage it in the input field.
type Sink interface {
	Deliver(text string, autoSend bool) error
}

// DeliveryError reports which stage of keystroke delivery failed.
type DeliveryError struct {
	Stage string // "clipboard", "chat key", "paste", "send"
	Err   error
}

func (e *DeliveryError) Error() string {
	return "delivery failed at " + e.Stage + ": " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Err }
