package errcode

// Error code convention for notify messages pushed to clients:
// - 0: no error
// - 4xxx: recoverable business errors (missing data, flow may continue)
// - 5xxx: system errors (flow aborted)
const (
	OK              = 0
	ResourceMissing = 4004
	SystemError     = 5000
)
