// Package store caches personas, games and platforms fetched from the upstream
// content source and exposes lookup indexes over them.
//
// The store prefers availability over freshness: a refresh failure for one
// entity type leaves that type's previous cached value intact and never
// surfaces an error to callers that merely want a list.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/scoremilk/chat-gateway/internal/cache"
	"github.com/scoremilk/chat-gateway/internal/urlx"
	"github.com/scoremilk/chat-gateway/pkg/logger"
	"github.com/scoremilk/chat-gateway/pkg/metrics"
)

// Cache keys, one per entity type. Each value carries the list together with
// its lookup index so readers never observe a torn pair.
const (
	keyPersonas  = "personas"
	keyGames     = "games"
	keyPlatforms = "platforms"
)

type personaSet struct {
	list   []Persona
	byName map[string]Persona
}

type gameSet struct {
	list    []Game
	byAlias map[string]Game
}

type platformSet struct {
	list  []Platform
	byURL map[string]Platform
}

// Config holds Store construction options.
type Config struct {
	Loader  PersonaLoader
	Logger  logger.Logger
	Metrics *metrics.Metrics // optional
	TTL     time.Duration    // defaults to cache.DefaultTTL
}

// Store presents a stable, queryable view of personas, games and platforms
// while hiding fetch latency behind a TTL cache.
type Store struct {
	loader  PersonaLoader
	log     logger.Logger
	metrics *metrics.Metrics
	ttl     time.Duration

	personas  *cache.Cache[string, personaSet]
	games     *cache.Cache[string, gameSet]
	platforms *cache.Cache[string, platformSet]
}

// New creates a Store backed by the given loader.
func New(cfg Config) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Store{
		loader:    cfg.Loader,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		ttl:       ttl,
		personas:  cache.New[string, personaSet](),
		games:     cache.New[string, gameSet](),
		platforms: cache.New[string, platformSet](),
	}
}

// Ready reports whether at least one entity type has been fetched
// successfully and is still within its TTL. Used by the readiness probe.
func (s *Store) Ready() bool {
	return s.personas.Has(keyPersonas) || s.games.Has(keyGames) || s.platforms.Has(keyPlatforms)
}

// GetPersonas returns the cached persona list, refreshing first on a cold or
// expired cache. Returns an empty list when nothing could be fetched.
func (s *Store) GetPersonas(ctx context.Context) []Persona {
	set, ok := s.personas.Get(keyPersonas)
	if !ok {
		s.RefreshData(ctx)
		set, _ = s.personas.Get(keyPersonas)
	}
	return set.list
}

// GetGames returns the cached game list, refreshing first on a cold or
// expired cache.
func (s *Store) GetGames(ctx context.Context) []Game {
	set, ok := s.games.Get(keyGames)
	if !ok {
		s.RefreshData(ctx)
		set, _ = s.games.Get(keyGames)
	}
	return set.list
}

// GetPlatforms returns the cached platform list, refreshing first on a cold or
// expired cache. The list is sorted by name so "first platform" decisions are
// deterministic.
func (s *Store) GetPlatforms(ctx context.Context) []Platform {
	set, ok := s.platforms.Get(keyPlatforms)
	if !ok {
		s.RefreshData(ctx)
		set, _ = s.platforms.Get(keyPlatforms)
	}
	return set.list
}

// GetPersonaByName looks up a persona by its unique name.
func (s *Store) GetPersonaByName(ctx context.Context, name string) (Persona, bool) {
	set, ok := s.personas.Get(keyPersonas)
	if !ok {
		s.RefreshData(ctx)
		set, ok = s.personas.Get(keyPersonas)
		if !ok {
			return Persona{}, false
		}
	}
	p, ok := set.byName[name]
	return p, ok
}

// GetGameByAlias looks up a game by its routing alias.
func (s *Store) GetGameByAlias(ctx context.Context, alias string) (Game, bool) {
	set, ok := s.games.Get(keyGames)
	if !ok {
		s.RefreshData(ctx)
		set, ok = s.games.Get(keyGames)
		if !ok {
			return Game{}, false
		}
	}
	g, ok := set.byAlias[alias]
	return g, ok
}

// GetPlatformByURL looks up a platform by any raw URL or host; the argument is
// normalized with the same normalizer used at registration time.
func (s *Store) GetPlatformByURL(ctx context.Context, rawURL string) (Platform, bool) {
	domain, ok := urlx.Normalize(rawURL)
	if !ok {
		s.log.Warn("failed to normalize URL for platform lookup", logger.StringField("url", rawURL))
		return Platform{}, false
	}

	set, ok := s.platforms.Get(keyPlatforms)
	if !ok {
		s.RefreshData(ctx)
		set, ok = s.platforms.Get(keyPlatforms)
		if !ok {
			return Platform{}, false
		}
	}
	p, ok := set.byURL[domain]
	return p, ok
}

// RefreshData repopulates the three cache entries from the loader. The three
// fetches run concurrently and fail independently: a games fetch error must
// not block personas or platforms. It never returns an error; a failed entity
// type is logged and its previous cached value stays in place until its TTL
// lapses, stale data being preferable to none. A successful fetch replaces
// list and index together, so the invalidate/repopulate step is one atomic
// swap per entity type.
func (s *Store) RefreshData(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		s.refreshPersonas(ctx)
	}()
	go func() {
		defer wg.Done()
		s.refreshGames(ctx)
	}()
	go func() {
		defer wg.Done()
		s.refreshPlatforms(ctx)
	}()

	wg.Wait()
}

func (s *Store) refreshPersonas(ctx context.Context) {
	personas, err := s.loader.GetPersonas(ctx)
	if err != nil {
		s.log.Error("failed to refresh personas", logger.ErrorField(err))
		s.countRefresh("personas", false)
		return
	}

	byName := make(map[string]Persona, len(personas))
	for _, p := range personas {
		byName[p.Name] = p
	}

	s.personas.Set(keyPersonas, personaSet{list: personas, byName: byName}, s.ttl)
	s.countRefresh("personas", true)
	s.log.Info("personas refreshed", logger.IntField("count", len(personas)))
}

func (s *Store) refreshGames(ctx context.Context) {
	games, err := s.loader.GetGames(ctx)
	if err != nil {
		s.log.Error("failed to refresh games", logger.ErrorField(err))
		s.countRefresh("games", false)
		return
	}

	byAlias := make(map[string]Game, len(games))
	for _, g := range games {
		byAlias[g.Alias] = g
	}

	s.games.Set(keyGames, gameSet{list: games, byAlias: byAlias}, s.ttl)
	s.countRefresh("games", true)
	s.log.Info("games refreshed", logger.IntField("count", len(games)))
}

func (s *Store) refreshPlatforms(ctx context.Context) {
	platforms, err := s.loader.GetPlatforms(ctx)
	if err != nil {
		s.log.Error("failed to refresh platforms", logger.ErrorField(err))
		s.countRefresh("platforms", false)
		return
	}

	// Platforms without a normalizable URL can never match at admission time,
	// so they are dropped here rather than kept inert.
	kept := make([]Platform, 0, len(platforms))
	byURL := make(map[string]Platform, len(platforms))
	for _, p := range platforms {
		domain, ok := urlx.Normalize(p.URL)
		if !ok {
			s.log.Warn("dropping platform with unusable URL",
				logger.StringField("platform", p.Name),
				logger.StringField("url", p.URL))
			continue
		}
		kept = append(kept, p)
		// Two raw URLs normalizing equal collide; the later one wins.
		byURL[domain] = p
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })

	s.platforms.Set(keyPlatforms, platformSet{list: kept, byURL: byURL}, s.ttl)
	s.countRefresh("platforms", true)
	s.log.Info("platforms refreshed",
		logger.IntField("count", len(kept)),
		logger.IntField("dropped", len(platforms)-len(kept)))
}

func (s *Store) countRefresh(entity string, ok bool) {
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.RefreshSuccess.WithLabelValues(entity).Inc()
	} else {
		s.metrics.RefreshFailure.WithLabelValues(entity).Inc()
	}
}
