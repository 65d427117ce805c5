package worker

// ResumePDFNotifyMessage is the WebSocket message forwarded to the client
// through redis pub/sub when a resume PDF render finishes. Field names are
// part of the client protocol.
type ResumePDFNotifyMessage struct {
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
	ObjectKey     string `json:"object_key,omitempty"`
}
