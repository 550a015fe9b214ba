package store

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoremilk/chat-gateway/pkg/logger"
)

func newTestLogger() logger.Logger {
	return logger.NewLogger(logger.Config{Level: logger.DebugLevel, Output: io.Discard})
}

// fakeLoader serves canned data and can be told to fail per entity type.
type fakeLoader struct {
	mu sync.Mutex

	personas  []Persona
	games     []Game
	platforms []Platform

	personasErr  error
	gamesErr     error
	platformsErr error

	personaCalls int
}

func (f *fakeLoader) GetPersonas(context.Context) ([]Persona, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.personaCalls++
	if f.personasErr != nil {
		return nil, f.personasErr
	}
	return f.personas, nil
}

func (f *fakeLoader) GetGames(context.Context) ([]Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gamesErr != nil {
		return nil, f.gamesErr
	}
	return f.games, nil
}

func (f *fakeLoader) GetPlatforms(context.Context) ([]Platform, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.platformsErr != nil {
		return nil, f.platformsErr
	}
	return f.platforms, nil
}

func (f *fakeLoader) set(fn func(*fakeLoader)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func testData() *fakeLoader {
	return &fakeLoader{
		personas: []Persona{
			{ID: "p1", Name: "Milk Man", Template: "You are the Milk Man.", IsActive: true},
			{ID: "p2", Name: "Referee", Template: "You are a strict referee.", IsActive: true},
		},
		games: []Game{
			{ID: "g1", Name: "Chaos Chess", Alias: "chaoschess", Instructions: "Pieces move strangely.", IsActive: true},
		},
		platforms: []Platform{
			{ID: "pl2", Name: "Score Milk", URL: "scoremilk.com", IsActive: true},
			{ID: "pl1", Name: "Arcade", URL: "https://Arcade.example.com", IsActive: true},
		},
	}
}

func newTestStore(loader PersonaLoader) *Store {
	return New(Config{Loader: loader, Logger: newTestLogger()})
}

func TestColdReadTriggersRefresh(t *testing.T) {
	loader := testData()
	s := newTestStore(loader)

	personas := s.GetPersonas(context.Background())
	require.Len(t, personas, 2)
	assert.Equal(t, 1, loader.personaCalls)

	// Second read is served from cache.
	s.GetPersonas(context.Background())
	assert.Equal(t, 1, loader.personaCalls)
}

func TestReady(t *testing.T) {
	loader := testData()
	s := newTestStore(loader)

	assert.False(t, s.Ready())

	s.RefreshData(context.Background())
	assert.True(t, s.Ready())
}

func TestReadyAfterPartialRefresh(t *testing.T) {
	loader := testData()
	loader.personasErr = errors.New("boom")
	loader.gamesErr = errors.New("boom")
	s := newTestStore(loader)

	// Platforms alone are enough for the gateway to admit connections.
	s.RefreshData(context.Background())
	assert.True(t, s.Ready())
}

func TestLookupsByKey(t *testing.T) {
	s := newTestStore(testData())
	ctx := context.Background()

	p, ok := s.GetPersonaByName(ctx, "Milk Man")
	require.True(t, ok)
	assert.Equal(t, "p1", p.ID)

	g, ok := s.GetGameByAlias(ctx, "chaoschess")
	require.True(t, ok)
	assert.Equal(t, "Chaos Chess", g.Name)

	_, ok = s.GetGameByAlias(ctx, "poker")
	assert.False(t, ok)
}

func TestPlatformLookupNormalizesBothSides(t *testing.T) {
	s := newTestStore(testData())
	ctx := context.Background()

	// Registered as "https://Arcade.example.com", looked up via an Origin header value.
	p, ok := s.GetPlatformByURL(ctx, "https://arcade.example.com")
	require.True(t, ok)
	assert.Equal(t, "Arcade", p.Name)

	// Bare host works too.
	p, ok = s.GetPlatformByURL(ctx, "scoremilk.com")
	require.True(t, ok)
	assert.Equal(t, "Score Milk", p.Name)

	_, ok = s.GetPlatformByURL(ctx, "::garbage::")
	assert.False(t, ok)
}

func TestPlatformsSortedByName(t *testing.T) {
	s := newTestStore(testData())

	platforms := s.GetPlatforms(context.Background())
	require.Len(t, platforms, 2)
	assert.Equal(t, "Arcade", platforms[0].Name)
	assert.Equal(t, "Score Milk", platforms[1].Name)
}

func TestUnnormalizablePlatformURLDropped(t *testing.T) {
	loader := testData()
	loader.platforms = append(loader.platforms, Platform{ID: "pl3", Name: "Broken", URL: ""})
	s := newTestStore(loader)

	platforms := s.GetPlatforms(context.Background())
	assert.Len(t, platforms, 2)
}

func TestPartialRefreshFailureKeepsOtherEntities(t *testing.T) {
	loader := testData()
	loader.gamesErr = errors.New("games table unavailable")
	s := newTestStore(loader)
	ctx := context.Background()

	s.RefreshData(ctx)

	assert.Len(t, s.GetPersonas(ctx), 2)
	assert.Len(t, s.GetPlatforms(ctx), 2)
	// Games were never populated, so the list is empty but nothing failed loudly.
	assert.Empty(t, s.GetGames(ctx))
}

func TestRefreshFailureKeepsPreviousValue(t *testing.T) {
	loader := testData()
	s := newTestStore(loader)
	ctx := context.Background()

	s.RefreshData(ctx)
	require.Len(t, s.GetGames(ctx), 1)

	loader.set(func(f *fakeLoader) { f.gamesErr = errors.New("flaky upstream") })
	s.RefreshData(ctx)

	// The previous games value survives a failed refresh cycle.
	games := s.GetGames(ctx)
	require.Len(t, games, 1)
	assert.Equal(t, "chaoschess", games[0].Alias)
}

func TestRefreshPicksUpNewData(t *testing.T) {
	loader := testData()
	s := newTestStore(loader)
	ctx := context.Background()

	s.RefreshData(ctx)

	loader.set(func(f *fakeLoader) {
		f.games = append(f.games, Game{ID: "g2", Name: "Trivia", Alias: "trivia", IsActive: true})
	})
	s.RefreshData(ctx)

	assert.Len(t, s.GetGames(ctx), 2)
	_, ok := s.GetGameByAlias(ctx, "trivia")
	assert.True(t, ok)
}

func TestDuplicateNormalizedURLLastWins(t *testing.T) {
	loader := testData()
	loader.platforms = []Platform{
		{ID: "a", Name: "First", URL: "Game.com"},
		{ID: "b", Name: "Second", URL: "https://game.com"},
	}
	s := newTestStore(loader)

	p, ok := s.GetPlatformByURL(context.Background(), "game.com")
	require.True(t, ok)
	assert.Equal(t, "b", p.ID)
}

func TestAllLoadersFailingYieldsEmptyLists(t *testing.T) {
	loader := &fakeLoader{
		personasErr:  errors.New("down"),
		gamesErr:     errors.New("down"),
		platformsErr: errors.New("down"),
	}
	s := newTestStore(loader)
	ctx := context.Background()

	assert.Empty(t, s.GetPersonas(ctx))
	assert.Empty(t, s.GetGames(ctx))
	assert.Empty(t, s.GetPlatforms(ctx))

	_, ok := s.GetPersonaByName(ctx, "Milk Man")
	assert.False(t, ok)
}

func TestConcurrentReadsDuringRefresh(t *testing.T) {
	loader := testData()
	s := New(Config{Loader: loader, Logger: newTestLogger(), TTL: time.Hour})
	ctx := context.Background()

	s.RefreshData(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				platforms := s.GetPlatforms(ctx)
				// A reader sees either a full set or (mid-swap) the complete previous one.
				assert.Len(t, platforms, 2)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			s.RefreshData(ctx)
		}
	}()
	wg.Wait()
}
