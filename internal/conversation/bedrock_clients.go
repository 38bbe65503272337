package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockLLMClient runs qualification turns through the Bedrock Converse API.
type BedrockLLMClient struct {
	api   bedrockConverseAPI
	model string
}

func NewBedrockLLMClient(api bedrockConverseAPI, model string) *BedrockLLMClient {
	if api == nil {
		panic("conversation: bedrock converse client cannot be nil")
	}
	return &BedrockLLMClient{api: api, model: strings.TrimSpace(model)}
}

func (c *BedrockLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	if model == "" {
		return LLMResponse{}, errors.New("conversation: bedrock model id is required")
	}

	system, messages, err := converseTurns(req)
	if err != nil {
		return LLMResponse{}, err
	}
	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(model),
		System:          system,
		Messages:        messages,
		InferenceConfig: converseInference(req),
	})
	if err != nil {
		return LLMResponse{}, err
	}
	return converseResponse(out)
}

// converseTurns splits a transcript into system blocks and alternating turns.
// System-role messages are folded into the system blocks and the history is
// trimmed until it opens with a user turn, as Converse requires.
func converseTurns(req LLMRequest) ([]brtypes.SystemContentBlock, []brtypes.Message, error) {
	var system []brtypes.SystemContentBlock
	addSystem := func(text string) {
		if text = strings.TrimSpace(text); text != "" {
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: text})
		}
	}
	for _, block := range req.System {
		addSystem(block)
	}

	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}
		var role brtypes.ConversationRole
		switch msg.Role {
		case ChatRoleSystem:
			addSystem(text)
			continue
		case ChatRoleUser:
			role = brtypes.ConversationRoleUser
		case ChatRoleAssistant:
			if len(messages) == 0 {
				continue
			}
			role = brtypes.ConversationRoleAssistant
		default:
			return nil, nil, fmt.Errorf("conversation: unsupported role %q", msg.Role)
		}
		messages = append(messages, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		})
	}
	return system, messages, nil
}

// converseInference returns nil when the request sets nothing. A negative
// temperature leaves the model default in place.
func converseInference(req LLMRequest) *brtypes.InferenceConfiguration {
	var cfg brtypes.InferenceConfiguration
	set := false
	if req.MaxTokens > 0 {
		cfg.MaxTokens, set = aws.Int32(req.MaxTokens), true
	}
	if req.Temperature >= 0 {
		cfg.Temperature, set = aws.Float32(req.Temperature), true
	}
	if req.TopP != 0 {
		cfg.TopP, set = aws.Float32(req.TopP), true
	}
	if !set {
		return nil
	}
	return &cfg
}

func converseResponse(out *bedrockruntime.ConverseOutput) (LLMResponse, error) {
	if out == nil {
		return LLMResponse{}, errors.New("conversation: bedrock response is nil")
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return LLMResponse{}, errors.New("conversation: bedrock response did not include a message output")
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}
	resp := LLMResponse{
		Text:       strings.TrimSpace(text.String()),
		StopReason: string(out.StopReason),
	}
	if resp.Text == "" {
		return LLMResponse{}, errors.New("conversation: bedrock response contained no text content blocks")
	}
	if u := out.Usage; u != nil {
		resp.Usage = TokenUsage{
			InputTokens:  aws.ToInt32(u.InputTokens),
			OutputTokens: aws.ToInt32(u.OutputTokens),
			TotalTokens:  aws.ToInt32(u.TotalTokens),
		}
	}
	return resp, nil
}
