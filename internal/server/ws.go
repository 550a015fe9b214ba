package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scoremilk/chat-gateway/internal/admission"
	"github.com/scoremilk/chat-gateway/internal/agent"
	"github.com/scoremilk/chat-gateway/internal/chat"
	"github.com/scoremilk/chat-gateway/internal/store"
	"github.com/scoremilk/chat-gateway/pkg/logger"
)

// systemSender labels gateway-originated messages so the widget can render
// them distinctly from agent replies.
const systemSender = "System"

const chatNotFoundMessage = "Chat not found. Please reconnect to start a new chat."

type inboundMessage struct {
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type outboundMessage struct {
	Message   string `json:"message"`
	From      string `json:"from"`
	Username  string `json:"username"`
	Game      string `json:"game"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := r.URL.Query()
	chatID := q.Get("chatId")
	userID := q.Get("userId")
	gameKey := q.Get("gameKey")
	if chatID == "" || userID == "" || gameKey == "" {
		http.Error(w, "chatId, userId and gameKey query parameters are required", http.StatusBadRequest)
		return
	}

	result := s.checker.Check(s.store.GetPlatforms(ctx), admission.Request{
		PlatformName: q.Get("platform"),
		Origin:       r.Header.Get("Origin"),
		Host:         r.Host,
	})

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	s.metrics.ConnectionsOpened.Inc()
	defer s.metrics.ConnectionsClosed.Inc()

	log := s.log.WithFields(
		logger.StringField("chat_id", chatID),
		logger.StringField("user_id", userID),
		logger.StringField("game", gameKey))

	if !result.IsValid {
		s.metrics.AdmissionRejected.Inc()
		log.Warn("platform admission rejected", logger.StringField("reason", result.Error))
		s.send(conn, gameKey, systemSender, result.Error)
		return
	}

	if err := s.openSession(ctx, conn, chatID, userID, gameKey, result.Platform, log); err != nil {
		return
	}
	defer func() {
		if err := s.registry.DeleteChat(chatID); err != nil && !errors.Is(err, chat.ErrChatNotFound) {
			log.Error("failed to delete chat", logger.ErrorField(err))
		}
	}()

	s.readLoop(ctx, conn, chatID, gameKey, log)
}

// openSession creates the registry entry for this connection and relays the
// agent's welcome message. Reconnecting to a live chat id reuses the existing
// session without a second welcome.
func (s *Server) openSession(ctx context.Context, conn *websocket.Conn, chatID, userID, gameKey string, platform *store.Platform, log logger.Logger) error {
	if _, err := s.registry.GetChat(chatID); err == nil {
		return nil
	}

	session, err := s.registry.CreateChat(ctx, chatID, userID, gameKey, platform)
	if err != nil {
		log.Error("failed to create chat", logger.ErrorField(err))
		s.send(conn, gameKey, systemSender, "Unable to start chat. Please try again later.")
		return err
	}

	welcome, err := s.registry.Welcome(ctx, session)
	if err != nil {
		s.metrics.AgentPromptErrors.Inc()
		log.Error("welcome prompt failed", logger.ErrorField(err))
		return nil
	}
	if welcome != agent.NoReply {
		s.send(conn, gameKey, agent.Name, welcome)
	}
	return nil
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, chatID, gameKey string, log logger.Logger) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read error", logger.ErrorField(err))
			}
			return
		}
		s.metrics.MessagesReceived.Inc()

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("ignoring malformed message", logger.ErrorField(err))
			continue
		}

		if msg.Message == "ping" {
			s.send(conn, gameKey, systemSender, "pong")
			continue
		}

		session, err := s.registry.GetChat(chatID)
		if err != nil {
			s.send(conn, gameKey, systemSender, chatNotFoundMessage)
			continue
		}

		prompt, ok := buildPrompt(msg, log)
		if !ok {
			continue
		}

		reply, err := session.Agent.Prompt(ctx, prompt)
		if err != nil {
			s.metrics.AgentPromptErrors.Inc()
			log.Error("agent prompt failed", logger.ErrorField(err))
			continue
		}
		if reply == agent.NoReply {
			continue
		}
		s.send(conn, gameKey, agent.Name, reply)
	}
}

// buildPrompt maps an inbound frame to the agent prompt. Data events are
// relayed as pretty-printed JSON under the system tag so the agent can
// distinguish them from player text.
func buildPrompt(msg inboundMessage, log logger.Logger) (string, bool) {
	switch {
	case len(msg.Data) > 0:
		var event any
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Warn("ignoring malformed data event", logger.ErrorField(err))
			return "", false
		}
		pretty, err := json.MarshalIndent(event, "", "  ")
		if err != nil {
			log.Warn("failed to serialize data event", logger.ErrorField(err))
			return "", false
		}
		return "[SYSTEM]: " + string(pretty), true
	case msg.Message != "":
		return msg.Message, true
	default:
		log.Warn("ignoring message with no message or data field")
		return "", false
	}
}

func (s *Server) send(conn *websocket.Conn, gameKey, from, text string) {
	out := outboundMessage{
		Message:   text,
		From:      from,
		Username:  from,
		Game:      gameKey,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := conn.WriteJSON(out); err != nil {
		s.log.Warn("websocket write failed", logger.ErrorField(err))
		return
	}
	s.metrics.MessagesSent.Inc()
}
