package indicator

// messages holds the text shown for each session state.
type messages struct {
	connecting string
	connected  string
	speaking   string
	listening  string
	evaluating string
	errorText  string
}

var defaultMessages = messages{
	connecting: "Connecting to interviewer…",
	connected:  "Interview in progress",
	speaking:   "Interviewer is speaking…",
	listening:  "Listening for your response…",
	evaluating: "Evaluating your interview…",
	errorText:  "Interview error",
}
