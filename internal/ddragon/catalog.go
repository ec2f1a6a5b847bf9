package ddragon

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"mastery-tracker/internal/config"
	"mastery-tracker/internal/constants"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/singleflight"
)

const defaultBaseURL = "https://ddragon.leagueoflegends.com"

type championFile struct {
	Data map[string]struct {
		ID   string `json:"id"`
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"data"`
}

// Catalog maps numeric champion ids to display names using Data Dragon.
type Catalog struct {
	client  *fasthttp.Client
	baseURL string
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
	logger  zerolog.Logger

	mu        sync.RWMutex
	names     map[int]string
	version   string
	fetchedAt time.Time
}

func New(baseURL string, ttl time.Duration, logger zerolog.Logger) *Catalog {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if ttl <= 0 {
		ttl = constants.ChampionCacheTTL
	}
	return &Catalog{
		client: &fasthttp.Client{
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With().Str("component", "ddragon").Logger(),
	}
}

func NewCatalog(cfg *config.Config, logger zerolog.Logger) *Catalog {
	return New("", cfg.ChampionCacheTTL, logger)
}

// Name returns the champion's display name, or "" when unknown or unavailable.
func (c *Catalog) Name(ctx context.Context, championID int) string {
	return c.Names(ctx)[championID]
}

// Names returns the id->name map, refreshing it when older than the TTL.
// On refresh failure the previous map (possibly empty) is returned.
func (c *Catalog) Names(ctx context.Context) map[int]string {
	c.mu.RLock()
	names, fresh := c.names, c.names != nil && c.now().Sub(c.fetchedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return names
	}

	v, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to refresh champion catalog")
		if names == nil {
			return map[int]string{}
		}
		return names
	}
	return v.(map[int]string)
}

func (c *Catalog) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Catalog) refresh(ctx context.Context) (map[int]string, error) {
	var versions []string
	if err := c.getJSON(ctx, c.baseURL+"/api/versions.json", &versions); err != nil {
		return nil, fmt.Errorf("failed to fetch versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("failed to fetch versions: empty list")
	}
	latest := versions[0]

	var file championFile
	if err := c.getJSON(ctx, fmt.Sprintf("%s/cdn/%s/data/en_US/champion.json", c.baseURL, latest), &file); err != nil {
		return nil, fmt.Errorf("failed to fetch champions: %w", err)
	}

	names := make(map[int]string, len(file.Data))
	for _, champ := range file.Data {
		id, err := strconv.Atoi(champ.Key)
		if err != nil {
			continue
		}
		names[id] = champ.Name
	}

	c.mu.Lock()
	c.names = names
	c.version = latest
	c.fetchedAt = c.now()
	c.mu.Unlock()

	c.logger.Info().Str("version", latest).Int("champions", len(names)).Msg("champion catalog refreshed")
	return names, nil
}

func (c *Catalog) getJSON(ctx context.Context, url string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.ExternalAPITimeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode(), url)
	}
	return json.Unmarshal(resp.Body(), out)
}
