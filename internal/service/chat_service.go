package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/digkill/genstudio/internal/genai"
	"github.com/digkill/genstudio/internal/models"
)

// maxChatTurns bounds how much of a session is replayed to the backend.
const maxChatTurns = 20

type ChatInput struct {
	SessionID string
	Message   string
	Mode      genai.ChatMode
}

type ChatExchange struct {
	SessionID string             `json:"session_id"`
	Message   models.ChatMessage `json:"message"`
	Reply     models.ChatMessage `json:"reply"`
}

// SendChat charges for one message and stores it with the reply. An empty
// SessionID starts a new session.
func (s *GenerationService) SendChat(ctx context.Context, userID string, in ChatInput) (*ChatExchange, error) {
	if err := s.precheck(ctx, userID, chatBot); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil, invalidInput("message is required")
	}
	if in.Mode == "" {
		in.Mode = genai.ChatModeFast
	}
	if !in.Mode.Valid() {
		return nil, invalidInput("unknown chat mode %q", in.Mode)
	}
	if in.SessionID == "" {
		in.SessionID = uuid.NewString()
	}

	history, err := s.sessionTurns(ctx, userID, in.SessionID)
	if err != nil {
		return nil, err
	}

	var exchange *ChatExchange
	err = s.charge(ctx, userID, string(models.ActivityChatbotMessage), s.costs.Chat, func(ctx context.Context) error {
		reply, err := s.gen.Chat(ctx, genai.ChatRequest{History: history, Message: text, Mode: in.Mode})
		if err != nil {
			return err
		}
		now := s.clock.Now()
		exchange = &ChatExchange{
			SessionID: in.SessionID,
			Message: models.ChatMessage{
				ID: uuid.NewString(), UserID: userID, SessionID: in.SessionID,
				Sender: models.ChatSenderUser, Text: text, Mode: string(in.Mode), CreatedAt: now,
			},
			Reply: models.ChatMessage{
				ID: uuid.NewString(), UserID: userID, SessionID: in.SessionID,
				Sender: models.ChatSenderBot, Text: reply.Text, Mode: string(in.Mode), Sources: reply.Sources, CreatedAt: now,
			},
		}
		return s.chats.Append(ctx, exchange.Message, exchange.Reply)
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, userID, models.ActivityChatbotMessage,
		fmt.Sprintf("Sent message in %s mode: %q", in.Mode, promptPreview(text)))
	return exchange, nil
}

func (s *GenerationService) sessionTurns(ctx context.Context, userID, sessionID string) ([]genai.ChatTurn, error) {
	msgs, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var turns []genai.ChatTurn
	for _, m := range msgs {
		if m.SessionID != sessionID {
			continue
		}
		role := "user"
		if m.Sender == models.ChatSenderBot {
			role = "assistant"
		}
		turns = append(turns, genai.ChatTurn{Role: role, Text: m.Text})
	}
	if len(turns) > maxChatTurns {
		turns = turns[len(turns)-maxChatTurns:]
	}
	return turns, nil
}
