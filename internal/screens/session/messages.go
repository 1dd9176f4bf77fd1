package session

// viewChangedMsg is sent when the controller or the dictated draft changed.
type viewChangedMsg struct {
	id string
}

// opDoneMsg is sent when a controller operation returns.
type opDoneMsg struct {
	id     string
	op     string
	answer string // submitted text, restored into the box if grading failed
	Err    error
}

// dictationEndedMsg is sent when speech recognition stops.
type dictationEndedMsg struct {
	id  string
	Err error
}
