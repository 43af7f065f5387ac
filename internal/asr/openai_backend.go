package asr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/chatpipeline/internal/apierr"
)

// OpenAIBackend transcribes chunks via OpenAI's audio transcription API.
type OpenAIBackend struct {
	client *openai.Client
}

// NewOpenAIBackend constructs a backend bound to apiKey. Credential presence
// is validated eagerly so a missing key surfaces as a config error before
// any chunk is processed, not as a per-chunk auth failure mid-run.
func NewOpenAIBackend(apiKey string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	return &OpenAIBackend{client: openai.NewClient(apiKey)}, nil
}

// Transcribe sends one chunk to OpenAI and normalizes the response.
func (b *OpenAIBackend) Transcribe(ctx context.Context, req Request) (Response, error) {
	areq := openai.AudioRequest{
		Model:    req.Model,
		FilePath: req.WavPath,
		Format:   openai.AudioResponseFormatJSON,
	}
	if req.LanguageHint != "" && req.LanguageHint != "auto" {
		areq.Language = req.LanguageHint
	}

	resp, err := b.client.CreateTranscription(ctx, areq)
	if err != nil {
		return Response{}, classifyOpenAIError(err)
	}
	return Response{Text: resp.Text, Language: req.LanguageHint}, nil
}

// classifyOpenAIError maps the go-openai SDK's error types onto apierr
// sentinels so Client's retry policy can classify them uniformly.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrServer)
		default:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrUnknown)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: %v", apierr.ErrTimeout, reqErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apierr.ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", apierr.ErrUnknown, err)
}
