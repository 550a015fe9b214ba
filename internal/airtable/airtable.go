// Package airtable implements the upstream persona loader against the
// Airtable REST API. Records are validated at this boundary into the store's
// fixed types; malformed records are dropped with a warning rather than
// failing the whole batch.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/scoremilk/chat-gateway/internal/retry"
	"github.com/scoremilk/chat-gateway/internal/store"
	"github.com/scoremilk/chat-gateway/pkg/logger"
)

// DefaultBaseURL is the production Airtable API endpoint.
const DefaultBaseURL = "https://api.airtable.com/v0"

// Airtable identifier formats.
var (
	apiKeyPattern  = regexp.MustCompile(`^pat[A-Za-z0-9.]{79}$`)
	baseIDPattern  = regexp.MustCompile(`^app[A-Za-z0-9]{14}$`)
	tableIDPattern = regexp.MustCompile(`^tbl[A-Za-z0-9]{14}$`)
)

// Config holds Airtable connection settings.
type Config struct {
	APIKey           string
	BaseID           string
	PersonaTableID   string
	GamesTableID     string
	PlatformsTableID string
	BaseURL          string        // defaults to DefaultBaseURL
	Timeout          time.Duration // per-request timeout, defaults to 30s
}

// Validate checks the Airtable identifier formats.
func (c Config) Validate() error {
	var result error
	if !apiKeyPattern.MatchString(c.APIKey) {
		result = multierror.Append(result, fmt.Errorf("airtable API key must be a personal access token (pat...)"))
	}
	if !baseIDPattern.MatchString(c.BaseID) {
		result = multierror.Append(result, fmt.Errorf("airtable base ID must start with app followed by 14 characters"))
	}
	for _, tableID := range []string{c.PersonaTableID, c.GamesTableID, c.PlatformsTableID} {
		if !tableIDPattern.MatchString(tableID) {
			result = multierror.Append(result, fmt.Errorf("airtable table ID %q must start with tbl followed by 14 characters", tableID))
		}
	}
	return result
}

// Provider implements store.PersonaLoader over the Airtable REST API.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	executor   *retry.Executor
	log        logger.Logger
}

// New creates a Provider. The configuration is not validated here; call
// Config.Validate during startup so a bad deployment fails fast.
func New(cfg Config, log logger.Logger) *Provider {
	return NewWithExecutor(cfg, retry.NewExecutor(log), log)
}

// NewWithExecutor creates a Provider with a custom retry executor.
func NewWithExecutor(cfg Config, executor *retry.Executor, log logger.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
		log:        log,
	}
}

// GetPersonas fetches and validates the active personas, sorted by name.
func (p *Provider) GetPersonas(ctx context.Context) ([]store.Persona, error) {
	records, err := p.listRecords(ctx, p.cfg.PersonaTableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get personas: %w", err)
	}

	personas := make([]store.Persona, 0, len(records))
	for _, r := range records {
		name := r.stringField("Name")
		if name == "" {
			p.log.Warn("dropping persona record without a name", logger.StringField("record_id", r.ID))
			continue
		}
		personas = append(personas, store.Persona{
			ID:          r.ID,
			Name:        name,
			Description: r.stringField("Description"),
			Template:    r.stringField("Template"),
			IsActive:    r.boolField("Is Active", true),
			CreatedAt:   r.stringField("Created At"),
			UpdatedAt:   r.stringField("Updated At"),
		})
	}
	return personas, nil
}

// GetGames fetches and validates the active games. Games without a routing
// alias are dropped since no session could ever reach them.
func (p *Provider) GetGames(ctx context.Context) ([]store.Game, error) {
	records, err := p.listRecords(ctx, p.cfg.GamesTableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get games: %w", err)
	}

	games := make([]store.Game, 0, len(records))
	for _, r := range records {
		name := r.stringField("Name")
		alias := r.stringField("Alias")
		if name == "" || alias == "" {
			p.log.Warn("dropping game record without name or alias",
				logger.StringField("record_id", r.ID),
				logger.StringField("name", name))
			continue
		}
		games = append(games, store.Game{
			ID:           r.ID,
			Name:         name,
			Alias:        alias,
			Description:  r.stringField("Description"),
			Instructions: r.stringField("Instructions"),
			IsActive:     r.boolField("Is Active", true),
			CreatedAt:    r.stringField("Created At"),
			UpdatedAt:    r.stringField("Updated At"),
		})
	}
	return games, nil
}

// GetPlatforms fetches and validates the active platforms. URL normalization
// happens in the store, which owns the lookup index.
func (p *Provider) GetPlatforms(ctx context.Context) ([]store.Platform, error) {
	records, err := p.listRecords(ctx, p.cfg.PlatformsTableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get platforms: %w", err)
	}

	platforms := make([]store.Platform, 0, len(records))
	for _, r := range records {
		name := r.stringField("Name")
		if name == "" {
			p.log.Warn("dropping platform record without a name", logger.StringField("record_id", r.ID))
			continue
		}
		platforms = append(platforms, store.Platform{
			ID:          r.ID,
			Name:        name,
			Description: r.stringField("Description"),
			Template:    r.stringField("Template"),
			URL:         r.stringField("URL"),
			IsActive:    r.boolField("Is Active", true),
			CreatedAt:   r.stringField("Created At"),
			UpdatedAt:   r.stringField("Updated At"),
		})
	}
	return platforms, nil
}

type record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

func (r record) stringField(name string) string {
	if v, ok := r.Fields[name].(string); ok {
		return v
	}
	return ""
}

func (r record) boolField(name string, def bool) bool {
	if v, ok := r.Fields[name].(bool); ok {
		return v
	}
	return def
}

type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset"`
}

// listRecords pages through a table, requesting only active records sorted by
// name. The whole listing is wrapped in the retry executor so a transient
// upstream failure retries with backoff.
func (p *Provider) listRecords(ctx context.Context, tableID string) ([]record, error) {
	label := fmt.Sprintf("list records from table %s", tableID)
	return retry.Do(ctx, p.executor, label, func(ctx context.Context) ([]record, error) {
		var all []record
		offset := ""
		for {
			page, err := p.listPage(ctx, tableID, offset)
			if err != nil {
				return nil, err
			}
			all = append(all, page.Records...)
			if page.Offset == "" {
				return all, nil
			}
			offset = page.Offset
		}
	})
}

func (p *Provider) listPage(ctx context.Context, tableID, offset string) (*listResponse, error) {
	query := url.Values{}
	query.Set("filterByFormula", "{Is Active} = 1")
	query.Set("sort[0][field]", "Name")
	query.Set("sort[0][direction]", "asc")
	if offset != "" {
		query.Set("offset", offset)
	}

	endpoint := fmt.Sprintf("%s/%s/%s?%s", p.cfg.BaseURL, p.cfg.BaseID, tableID, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("airtable request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("airtable returned status %d: %s", resp.StatusCode, string(body))
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode airtable response: %w", err)
	}
	return &page, nil
}
