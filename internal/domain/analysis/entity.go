package analysis

import (
	"encoding/json"
	"time"
)

// RecordID identifier type
type RecordID string

// Intent enum — analysis category derived from the command text
type Intent string

const (
	IntentFaceRecognition Intent = "face_recognition"
	IntentObjectDetection Intent = "object_detection"
	IntentTextExtraction  Intent = "text_extraction"
	IntentEmotionAnalysis Intent = "emotion_analysis"
)

// FailureKind enum
type FailureKind string

const (
	FailureInvalidRequest     FailureKind = "invalid_request"
	FailureBackendRejected    FailureKind = "backend_rejected"
	FailureBackendUnavailable FailureKind = "backend_unavailable"
	FailureBackendTimeout     FailureKind = "backend_timeout"
	FailureBackendTransport   FailureKind = "backend_transport_error"
	FailurePersistence        FailureKind = "persistence_failed"
)

// Failure value object carried on outcomes and payloads
type Failure struct {
	Kind       FailureKind `json:"kind"`
	StatusCode int         `json:"status_code,omitempty"`
	Message    string      `json:"message"`
}

// Request is one uploaded image plus its free-text command.
// Immutable once constructed; SocketID empty means synchronous reply.
type Request struct {
	Image       []byte
	Filename    string
	ContentType string
	Command     string
	Save        bool
	SocketID    string
}

// Outcome of a single backend call. Produced once, never mutated.
type Outcome struct {
	Intent    Intent          `json:"intent"`
	Result    json.RawMessage `json:"result,omitempty"`
	Succeeded bool            `json:"succeeded"`
	Failure   *Failure        `json:"failure,omitempty"`
}

// Record is an append-only result log row
type Record struct {
	ID        RecordID        `json:"id"`
	Command   string          `json:"command"`
	Result    json.RawMessage `json:"result,omitempty"`
	ImageURL  string          `json:"image_url,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Payload is the terminal message delivered to the client,
// either as the HTTP response body or over the push channel.
type Payload struct {
	Command  string          `json:"command"`
	Intent   Intent          `json:"intent,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Saved    bool            `json:"saved"`
	Status   string          `json:"status"`
	Failure  *Failure        `json:"failure,omitempty"`
}

// Payload status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
