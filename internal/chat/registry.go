// Package chat maintains the registry of live chat sessions, one per external
// chat identifier, and creates the agent instance backing each session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/scoremilk/chat-gateway/internal/agent"
	"github.com/scoremilk/chat-gateway/internal/store"
	"github.com/scoremilk/chat-gateway/pkg/logger"
)

var (
	// ErrChatNotFound is returned when no session exists for a chat id.
	ErrChatNotFound = errors.New("chat not found")
	// ErrChatExists is returned when creating over an already active chat id.
	ErrChatExists = errors.New("chat already exists")
)

// Chat is one live chatId-to-agent binding.
type Chat struct {
	ID        string
	UserID    string
	GameKey   string
	Agent     agent.Agent
	CreatedAt time.Time
}

// Registry is the authoritative map from chat id to active session.
type Registry struct {
	builder *agent.Builder
	store   *store.Store
	log     logger.Logger

	mu    sync.RWMutex
	chats map[string]*Chat
}

// NewRegistry creates an empty Registry.
func NewRegistry(builder *agent.Builder, dataStore *store.Store, log logger.Logger) *Registry {
	return &Registry{
		builder: builder,
		store:   dataStore,
		log:     log,
		chats:   make(map[string]*Chat),
	}
}

// GetChat returns the active session for the id, or ErrChatNotFound.
func (r *Registry) GetChat(chatID string) (*Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %q: %w", chatID, ErrChatNotFound)
	}
	return c, nil
}

// CreateChat constructs a new agent-backed session and registers it. Creating
// over an active id fails with ErrChatExists so an open/close race cannot
// silently orphan an agent instance.
func (r *Registry) CreateChat(ctx context.Context, chatID, userID, gameKey string, platform *store.Platform) (*Chat, error) {
	r.mu.RLock()
	_, exists := r.chats[chatID]
	r.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("chat %q: %w", chatID, ErrChatExists)
	}

	agentInstance, err := r.builder.NewAgent(ctx, agent.Options{Platform: platform})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent for chat %q: %w", chatID, err)
	}

	c := &Chat{
		ID:        chatID,
		UserID:    userID,
		GameKey:   gameKey,
		Agent:     agentInstance,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	if _, exists := r.chats[chatID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("chat %q: %w", chatID, ErrChatExists)
	}
	r.chats[chatID] = c
	r.mu.Unlock()

	r.log.Info("chat created",
		logger.StringField("chat_id", chatID),
		logger.StringField("user_id", userID),
		logger.StringField("game", gameKey))

	return c, nil
}

// DeleteChat removes the session for the id, or fails with ErrChatNotFound.
func (r *Registry) DeleteChat(chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chats[chatID]; !ok {
		return fmt.Errorf("chat %q: %w", chatID, ErrChatNotFound)
	}
	delete(r.chats, chatID)

	r.log.Info("chat deleted", logger.StringField("chat_id", chatID))
	return nil
}

// Len reports the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chats)
}

// Welcome issues the initial prompt for a freshly created session, seeded with
// the game's instructions when the game key is known or a generic framing when
// it is not. The agent's reply is returned for relaying to the client; callers
// suppress it when it is the [NOREPLY] sentinel.
func (r *Registry) Welcome(ctx context.Context, c *Chat) (string, error) {
	var gameContext string
	if game, ok := r.store.GetGameByAlias(ctx, c.GameKey); ok && game.Instructions != "" {
		gameContext = game.Instructions
	} else {
		gameContext = fmt.Sprintf("You are playing a match of %s.", c.GameKey)
	}

	prompt := fmt.Sprintf("[SYSTEM]: %s\n[SYSTEM]: Send a small welcome message to the user.", gameContext)

	reply, err := c.Agent.Prompt(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("welcome prompt for chat %q: %w", c.ID, err)
	}
	return reply, nil
}
