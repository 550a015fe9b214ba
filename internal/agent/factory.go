package agent

import (
	"context"
	"fmt"

	"github.com/scoremilk/chat-gateway/internal/store"
	"github.com/scoremilk/chat-gateway/pkg/logger"
)

// LLM provider identifiers.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Factory creates agent instances from an assembled preamble.
type Factory interface {
	NewAgent(preamble string) Agent
}

// Defaults name the persona and platform used when a session does not
// resolve specific ones.
type Defaults struct {
	PersonaName  string
	PlatformName string
}

// Builder resolves persona and platform context from the data store and
// produces agents through the configured provider factory.
type Builder struct {
	store    *store.Store
	factory  Factory
	defaults Defaults
	log      logger.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(s *store.Store, factory Factory, defaults Defaults, log logger.Logger) *Builder {
	return &Builder{
		store:    s,
		factory:  factory,
		defaults: defaults,
		log:      log,
	}
}

// Options customizes one agent instance.
type Options struct {
	// PersonaName overrides the default persona. Falls back to the first
	// known persona when neither resolves.
	PersonaName string
	// Platform is the admitted platform, if any. When nil the default
	// platform name is looked up instead.
	Platform *store.Platform
	// CustomContext is appended verbatim to the preamble.
	CustomContext string
}

// NewAgent assembles a preamble from the current persona/platform data and
// creates a fresh agent for it.
func (b *Builder) NewAgent(ctx context.Context, opts Options) (Agent, error) {
	persona, err := b.resolvePersona(ctx, opts.PersonaName)
	if err != nil {
		return nil, err
	}

	platform := opts.Platform
	if platform == nil {
		platform = b.defaultPlatform(ctx)
	}

	preamble := BuildPreamble(persona, platform, opts.CustomContext)
	return b.factory.NewAgent(preamble), nil
}

func (b *Builder) resolvePersona(ctx context.Context, name string) (store.Persona, error) {
	if name == "" {
		name = b.defaults.PersonaName
	}

	if persona, ok := b.store.GetPersonaByName(ctx, name); ok {
		return persona, nil
	}

	// Unknown persona name: fall back to the first known persona rather than
	// refusing the session.
	personas := b.store.GetPersonas(ctx)
	if len(personas) == 0 {
		return store.Persona{}, fmt.Errorf("no personas available")
	}

	b.log.Warn("persona not found, falling back to first available",
		logger.StringField("requested", name),
		logger.StringField("fallback", personas[0].Name))
	return personas[0], nil
}

func (b *Builder) defaultPlatform(ctx context.Context) *store.Platform {
	if b.defaults.PlatformName == "" {
		return nil
	}
	for _, p := range b.store.GetPlatforms(ctx) {
		if p.Name == b.defaults.PlatformName {
			return &p
		}
	}
	return nil
}
