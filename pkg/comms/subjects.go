package comms

// Subjects are derived from the target's service name. Service names are
// dot-separated by grammar, so they embed directly into subject tokens.

// CallSubject is the request/reply subject a service answers calls on.
func CallSubject(service string) string {
	return "call." + service
}

// SignalSubject is the subject one named signal from a service is published
// on. Signal names are single tokens by grammar.
func SignalSubject(service, signal string) string {
	return "signal." + service + "." + signal
}

// SignalWildcard matches every signal a service publishes.
func SignalWildcard(service string) string {
	return "signal." + service + ".>"
}
