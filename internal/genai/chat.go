package genai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/digkill/genstudio/internal/models"
)

type ChatMode string

const (
	ChatModeFast     ChatMode = "fast"
	ChatModeSearch   ChatMode = "search"
	ChatModeThinking ChatMode = "thinking"
)

func (m ChatMode) Valid() bool {
	switch m {
	case ChatModeFast, ChatModeSearch, ChatModeThinking:
		return true
	}
	return false
}

type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"content"`
}

type ChatRequest struct {
	History []ChatTurn
	Message string
	Mode    ChatMode
}

type ChatReply struct {
	Text    string
	Sources []models.ChatSource
}

const systemPrompt = "You are a helpful assistant for an AI image and video studio. Answer concisely."

// Chat sends one message with its prior turns to the chat completions endpoint.
// Search mode asks for web grounding and returns the cited sources.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	messages := make([]ChatTurn, 0, len(req.History)+2)
	messages = append(messages, ChatTurn{Role: "system", Text: systemPrompt})
	messages = append(messages, req.History...)
	messages = append(messages, ChatTurn{Role: "user", Text: req.Message})

	payload := map[string]any{
		"model":    c.chatModel,
		"messages": messages,
	}
	switch req.Mode {
	case ChatModeSearch:
		payload["web_search_options"] = map[string]any{}
	case ChatModeThinking:
		payload["reasoning_effort"] = "high"
	}

	raw, err := c.do(ctx, http.MethodPost, c.chatPath, nil, payload, false)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	message := gjson.GetBytes(raw, "choices.0.message")
	text := strings.TrimSpace(message.Get("content").String())
	if text == "" {
		return nil, fmt.Errorf("chat: empty reply")
	}

	reply := &ChatReply{Text: text}
	message.Get("annotations").ForEach(func(_, ann gjson.Result) bool {
		if uri := ann.Get("url_citation.url").String(); uri != "" {
			reply.Sources = append(reply.Sources, models.ChatSource{
				Title: ann.Get("url_citation.title").String(),
				URI:   uri,
			})
		}
		return true
	})
	return reply, nil
}
