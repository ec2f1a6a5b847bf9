package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"mastery-tracker/internal/api"
	"mastery-tracker/internal/config"
	"mastery-tracker/internal/constants"
	"mastery-tracker/internal/domain"
	"mastery-tracker/internal/logger"
	"mastery-tracker/internal/throttle"

	"github.com/rs/zerolog"
)

// Doer is the queued GET every operation goes through. *throttle.Queue satisfies it.
type Doer interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Options struct {
	AccountCluster    string
	MatchCountCeiling int
	// BaseURL is a format string taking the host prefix (platform or cluster).
	BaseURL string
}

const defaultBaseURL = "https://%s.api.riotgames.com"

// Client composes URL templates with the shared queue. Nothing is cached.
type Client struct {
	doer   Doer
	opts   Options
	logger zerolog.Logger
}

func New(doer Doer, opts Options, logger zerolog.Logger) *Client {
	if opts.AccountCluster == "" {
		opts.AccountCluster = constants.DefaultAccountCluster
	}
	if opts.MatchCountCeiling <= 0 {
		opts.MatchCountCeiling = constants.DefaultMatchCountCeiling
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	return &Client{doer: doer, opts: opts, logger: logger.With().Str("component", "riot").Logger()}
}

func NewClient(queue *throttle.Queue, cfg *config.Config, logger zerolog.Logger) *Client {
	return New(queue, Options{
		AccountCluster:    cfg.AccountCluster,
		MatchCountCeiling: cfg.MatchCountCeiling,
	}, logger)
}

var routingClusters = map[string]string{
	"euw1": "europe",
	"eun1": "europe",
	"tr1":  "europe",
	"ru":   "europe",
	"na1":  "americas",
	"br1":  "americas",
	"la1":  "americas",
	"la2":  "americas",
	"oc1":  "americas",
	"kr":   "asia",
	"jp1":  "asia",
	"sg2":  "sea",
	"ph2":  "sea",
	"vn2":  "sea",
	"th2":  "sea",
	"tw2":  "sea",
}

// RoutingCluster maps a platform code to the continental cluster used by match-v5.
func RoutingCluster(region string) string {
	if c, ok := routingClusters[region]; ok {
		return c
	}
	return "europe"
}

func (c *Client) host(prefix string) string {
	return fmt.Sprintf(c.opts.BaseURL, prefix)
}

// ResolveRiotID splits GameName#Tag and looks the account up.
func (c *Client) ResolveRiotID(ctx context.Context, riotID string) (*domain.RiotAccount, error) {
	gameName, tagLine, err := domain.SplitRiotID(riotID)
	if err != nil {
		return nil, err
	}
	return c.ResolveAccount(ctx, gameName, tagLine)
}

func (c *Client) ResolveAccount(ctx context.Context, gameName, tagLine string) (*domain.RiotAccount, error) {
	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.host(c.opts.AccountCluster), url.PathEscape(gameName), url.PathEscape(tagLine))

	resp, err := getJSON[api.AccountResponse](ctx, c.doer, u)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account %s#%s: %w", gameName, tagLine, err)
	}
	if resp.Puuid == "" {
		return nil, fmt.Errorf("failed to resolve account %s#%s: empty puuid", gameName, tagLine)
	}

	c.logger.Debug().
		Str("riot_id", gameName+"#"+tagLine).
		Str("puuid", logger.ShortID(resp.Puuid)).
		Msg("account resolved")

	return &domain.RiotAccount{
		GameName: api.StringOr(resp.GameName, gameName),
		TagLine:  api.StringOr(resp.TagLine, tagLine),
		Puuid:    resp.Puuid,
	}, nil
}

func (c *Client) Masteries(ctx context.Context, region, puuid string) ([]domain.MasteryEntry, error) {
	u := fmt.Sprintf("%s/lol/champion-mastery/v4/champion-masteries/by-puuid/%s",
		c.host(region), url.PathEscape(puuid))

	resp, err := getJSON[[]api.ChampionMasteryResponse](ctx, c.doer, u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch masteries: %w", err)
	}

	entries := make([]domain.MasteryEntry, 0, len(*resp))
	for _, m := range *resp {
		if m.ChampionID == nil {
			continue
		}
		entries = append(entries, toEntry(m, *m.ChampionID))
	}
	return entries, nil
}

// ChampionMastery returns one champion's mastery. A champion never played is
// a 404 upstream and comes back as a zero entry.
func (c *Client) ChampionMastery(ctx context.Context, region, puuid string, championID int) (domain.MasteryEntry, error) {
	u := fmt.Sprintf("%s/lol/champion-mastery/v4/champion-masteries/by-puuid/%s/by-champion/%d",
		c.host(region), url.PathEscape(puuid), championID)

	resp, err := getJSON[api.ChampionMasteryResponse](ctx, c.doer, u)
	if api.IsStatus(err, http.StatusNotFound) {
		return domain.MasteryEntry{ChampionID: championID}, nil
	}
	if err != nil {
		return domain.MasteryEntry{}, fmt.Errorf("failed to fetch champion mastery: %w", err)
	}
	return toEntry(*resp, championID), nil
}

func (c *Client) Summoner(ctx context.Context, region, puuid string) (domain.SummonerProfile, error) {
	u := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.host(region), url.PathEscape(puuid))

	resp, err := getJSON[api.SummonerResponse](ctx, c.doer, u)
	if err != nil {
		return domain.SummonerProfile{}, fmt.Errorf("failed to fetch summoner: %w", err)
	}
	return domain.SummonerProfile{SummonerLevel: api.IntOrZero(resp.SummonerLevel)}, nil
}

// CountMatches pages through match IDs until a short page or the ceiling.
// A failing page ends pagination with what was counted so far.
func (c *Client) CountMatches(ctx context.Context, region, puuid string) domain.MatchCount {
	base := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids",
		c.host(RoutingCluster(region)), url.PathEscape(puuid))
	ceiling := c.opts.MatchCountCeiling

	var mc domain.MatchCount
	for mc.Count < ceiling {
		count := min(constants.MatchPageSize, ceiling-mc.Count)
		u := fmt.Sprintf("%s?start=%d&count=%d", base, mc.Count, count)

		ids, err := getJSON[api.MatchIDsResponse](ctx, c.doer, u)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("puuid", logger.ShortID(puuid)).
				Int("start", mc.Count).
				Msg("match page failed, returning partial count")
			mc.Partial = true
			return mc
		}

		mc.Pages++
		mc.Count += len(*ids)
		if len(*ids) < count {
			return mc
		}
	}
	mc.Capped = true
	return mc
}

func toEntry(m api.ChampionMasteryResponse, championID int) domain.MasteryEntry {
	return domain.MasteryEntry{
		ChampionID:     championID,
		ChampionPoints: api.IntOrZero(m.ChampionPoints),
		ChampionLevel:  api.IntOrZero(m.ChampionLevel),
	}
}

func getJSON[T any](ctx context.Context, doer Doer, url string) (*T, error) {
	body, err := doer.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
