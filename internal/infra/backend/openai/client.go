package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/vision-assist/internal/domain/analysis"
)

const maxTokens = 2048

// Client implements the analysis Backend port on top of an OpenAI
// vision-capable chat model. Alternative to the plain HTTP vision
// service, selected with backend.provider: openai.
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// Analyze runs one chat completion with the image attached as a data URL.
// Same contract as the HTTP client: failures come back as Outcome data.
func (c *Client) Analyze(ctx context.Context, image []byte, filename string, intent domain.Intent) domain.Outcome {
	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	contentType := http.DetectContentType(image)
	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))

	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(intent)},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPrompt(intent)},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
		MaxTokens: maxTokens,
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Outcome{Intent: intent, Failure: classifyError(err)}
	}
	if len(resp.Choices) == 0 {
		return domain.Outcome{
			Intent: intent,
			Failure: &domain.Failure{
				Kind:    domain.FailureBackendTransport,
				Message: "model returned no choices",
			},
		}
	}

	return domain.Outcome{
		Intent:    intent,
		Result:    json.RawMessage(resp.Choices[0].Message.Content),
		Succeeded: true,
	}
}

func classifyError(err error) *domain.Failure {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.Failure{
			Kind:       domain.FailureBackendRejected,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.Failure{
			Kind:       domain.FailureBackendRejected,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return &domain.Failure{
			Kind:    domain.FailureBackendUnavailable,
			Message: "model endpoint is not reachable: " + err.Error(),
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.Failure{
			Kind:    domain.FailureBackendTimeout,
			Message: "model call timed out: " + err.Error(),
		}
	}

	return &domain.Failure{
		Kind:    domain.FailureBackendTransport,
		Message: err.Error(),
	}
}
