package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	domain "github.com/bryanwahyu/vision-assist/internal/domain/analysis"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
)

// Client talks to the remote vision service over plain HTTP.
// One multipart POST per Analyze call, one bounded wait, no retries —
// a stale image is not worth retrying against.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// endpointFor maps every intent to a remote path. Total: unknown intents
// fall back to the face recognition endpoint, same as the default intent.
func endpointFor(intent domain.Intent) string {
	switch intent {
	case domain.IntentObjectDetection:
		return "/detect_objects"
	case domain.IntentTextExtraction:
		return "/extract_text"
	case domain.IntentEmotionAnalysis:
		return "/analyze_emotion"
	default:
		return "/recognize_face"
	}
}

// Analyze sends the image to the endpoint selected by intent.
// Failures are returned as data on the Outcome, never as an error.
func (c *Client) Analyze(ctx context.Context, image []byte, filename string, intent domain.Intent) domain.Outcome {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return transportFailure(intent, err)
	}
	if _, err := fw.Write(image); err != nil {
		return transportFailure(intent, err)
	}
	if err := mw.WriteField("intent", string(intent)); err != nil {
		return transportFailure(intent, err)
	}
	if err := mw.Close(); err != nil {
		return transportFailure(intent, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpointFor(intent), body)
	if err != nil {
		return transportFailure(intent, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Outcome{Intent: intent, Failure: classifyTransportError(err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Outcome{Intent: intent, Failure: classifyTransportError(err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Outcome{
			Intent: intent,
			Failure: &domain.Failure{
				Kind:       domain.FailureBackendRejected,
				StatusCode: resp.StatusCode,
				Message:    rejectionMessage(data, resp.Status),
			},
		}
	}

	return domain.Outcome{
		Intent:    intent,
		Result:    json.RawMessage(data),
		Succeeded: true,
	}
}

func transportFailure(intent domain.Intent, err error) domain.Outcome {
	return domain.Outcome{
		Intent: intent,
		Failure: &domain.Failure{
			Kind:    domain.FailureBackendTransport,
			Message: err.Error(),
		},
	}
}

// classifyTransportError orders the taxonomy: unreachable beats timeout
// beats generic transport fault.
func classifyTransportError(err error) *domain.Failure {
	switch {
	case isUnreachable(err):
		return &domain.Failure{
			Kind:    domain.FailureBackendUnavailable,
			Message: "analysis service is not reachable: " + err.Error(),
		}
	case isTimeout(err):
		return &domain.Failure{
			Kind:    domain.FailureBackendTimeout,
			Message: "analysis timed out: " + err.Error(),
		}
	default:
		return &domain.Failure{
			Kind:    domain.FailureBackendTransport,
			Message: err.Error(),
		}
	}
}

func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// rejectionMessage pulls the {"error": "..."} field the service uses for
// failures; falls back to the raw HTTP status line.
func rejectionMessage(body []byte, status string) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return fmt.Sprintf("analysis service returned %s", status)
}
