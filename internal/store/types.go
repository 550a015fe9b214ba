package store

import "context"

// Persona is a named prompt template defining the agent's character.
type Persona struct {
	ID          string
	Name        string
	Description string
	Template    string
	IsActive    bool
	CreatedAt   string
	UpdatedAt   string
}

// Game is a named ruleset whose instructions are injected into the agent's prompt.
// Alias is the routing key clients pass when opening a chat.
type Game struct {
	ID           string
	Name         string
	Alias        string
	Description  string
	Instructions string
	IsActive     bool
	CreatedAt    string
	UpdatedAt    string
}

// Platform is a registered caller origin permitted to open chat sessions.
type Platform struct {
	ID          string
	Name        string
	Description string
	Template    string
	URL         string
	IsActive    bool
	CreatedAt   string
	UpdatedAt   string
}

// PersonaLoader fetches validated persona, game and platform lists from the
// upstream content source.
type PersonaLoader interface {
	GetPersonas(ctx context.Context) ([]Persona, error)
	GetGames(ctx context.Context) ([]Game, error)
	GetPlatforms(ctx context.Context) ([]Platform, error)
}
