package conversation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Supported remote providers.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// ProviderConfig selects and configures the remote completion service.
type ProviderConfig struct {
	Provider       string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModel    string
	AWS            aws.Config
	HTTPClient     HTTPDoer
}

// ClientFor builds the LLM client for the configured provider and returns the
// model id requests should carry.
func ClientFor(ctx context.Context, cfg ProviderConfig) (LLMClient, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		httpClient := cfg.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{}
		}
		client, err := NewOpenAIClient(httpClient, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, "", err
		}
		return client, client.model, nil
	case ProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, "", errors.New("conversation: bedrock model id is required")
		}
		return NewBedrockLLMClient(bedrockruntime.NewFromConfig(cfg.AWS), cfg.BedrockModelID), cfg.BedrockModelID, nil
	case ProviderGemini:
		client, err := NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, "", err
		}
		return client, client.modelID, nil
	default:
		return nil, "", fmt.Errorf("conversation: unknown llm provider %q", cfg.Provider)
	}
}

// isRateLimited recognizes throttling from every supported provider.
func isRateLimited(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	var throttled *brtypes.ThrottlingException
	if errors.As(err, &throttled) {
		return true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	return false
}
