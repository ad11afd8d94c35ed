package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultOpenAIModel     = openai.ChatModelGPT4oMini
	defaultChatTemperature = 0.2
)

// OpenAIGateway calls the OpenAI Chat Completions API.
type OpenAIGateway struct {
	model  openai.ChatModel
	client *openai.Client
}

// NewOpenAIGateway builds a gateway against api.openai.com, or cfg.BaseURL when set.
// SDK retries are disabled; a failed call is reported once.
func NewOpenAIGateway(cfg Config) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key required")
	}
	model := openai.ChatModel(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(opts...)
	return &OpenAIGateway{
		model:  model,
		client: &cli,
	}, nil
}

func (g *OpenAIGateway) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", g.fail(errors.New("nil openai client"))
	}
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       g.model,
		Messages:    buildMessages(prompt),
		Temperature: openai.Float(defaultChatTemperature),
	})
	if err != nil {
		return "", g.fail(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", g.fail(errors.New("openai: no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGateway) fail(err error) error {
	genErr := &GenerationError{Provider: ProviderOpenAI, Err: err}
	if g != nil {
		genErr.Model = string(g.model)
	}
	return genErr
}

func buildMessages(user string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(user),
				},
			},
		},
	}
}
