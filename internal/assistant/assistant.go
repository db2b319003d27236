// Package assistant answers free-form questions about the live game with a
// single chat completion. Recent plays are passed along as context.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const systemPrompt = "You are a concise sports companion inside a live charity betting game. " +
	"Answer using the recent plays when they are relevant. Never suggest how to bet."

var ErrNotConfigured = errors.New("assistant is not configured")

// Completer runs one system+user completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type OpenAICompleter struct {
	Client openai.Client
	Model  string
}

func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompleter{Client: openai.NewClient(opts...), Model: model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type Assistant struct {
	Completer Completer
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Ask answers question. plays are raw play frames, oldest first.
func (a *Assistant) Ask(ctx context.Context, question string, plays []json.RawMessage) (string, error) {
	if a == nil || a.Completer == nil {
		return "", ErrNotConfigured
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question is empty")
	}
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}
	answer, err := a.Completer.Complete(ctx, systemPrompt, BuildPrompt(question, plays))
	if err != nil {
		if a.Logger != nil {
			a.Logger.Warn("assistant completion failed", zap.Error(err))
		}
		return "", fmt.Errorf("assistant: %w", err)
	}
	return answer, nil
}

func BuildPrompt(question string, plays []json.RawMessage) string {
	var b strings.Builder
	if len(plays) > 0 {
		b.WriteString("Recent plays, oldest first:\n")
		for _, p := range plays {
			b.WriteString("- ")
			b.Write(p)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
