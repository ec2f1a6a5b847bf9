package service

import (
	"context"
	"fmt"
	"slices"

	"mastery-tracker/internal/config"
	"mastery-tracker/internal/constants"
	"mastery-tracker/internal/domain"
	"mastery-tracker/internal/logger"
	"mastery-tracker/internal/playtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RiotAPI is the set of domain operations the aggregation runs per account.
type RiotAPI interface {
	ResolveAccount(ctx context.Context, gameName, tagLine string) (*domain.RiotAccount, error)
	Masteries(ctx context.Context, region, puuid string) ([]domain.MasteryEntry, error)
	ChampionMastery(ctx context.Context, region, puuid string, championID int) (domain.MasteryEntry, error)
	Summoner(ctx context.Context, region, puuid string) (domain.SummonerProfile, error)
	CountMatches(ctx context.Context, region, puuid string) domain.MatchCount
}

type ChampionNames interface {
	Names(ctx context.Context) map[int]string
}

type AggregationService struct {
	riot        RiotAPI
	names       ChampionNames
	concurrency int
	logger      zerolog.Logger
}

func NewAggregationService(riot RiotAPI, names ChampionNames, cfg *config.Config, logger zerolog.Logger) *AggregationService {
	concurrency := cfg.AccountConcurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultAccountParallel
	}
	return &AggregationService{
		riot:        riot,
		names:       names,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "aggregation").Logger(),
	}
}

type resolved struct {
	region  string
	account *domain.RiotAccount
}

func (s *AggregationService) resolve(ctx context.Context, ref domain.AccountRef) (resolved, error) {
	region, err := domain.NormalizeRegion(ref.Region)
	if err != nil {
		return resolved{region: region}, err
	}
	gameName, tagLine, err := domain.SplitRiotID(ref.Name)
	if err != nil {
		return resolved{region: region}, err
	}
	acc, err := s.riot.ResolveAccount(ctx, gameName, tagLine)
	if err != nil {
		return resolved{region: region}, err
	}
	return resolved{region: region, account: acc}, nil
}

// Account resolves a single Riot-ID. Unlike the batch operations, failures
// are returned to the caller.
func (s *AggregationService) Account(ctx context.Context, ref domain.AccountRef) (*domain.AccountLookup, error) {
	r, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &domain.AccountLookup{
		GameName: r.account.GameName,
		TagLine:  r.account.TagLine,
		Puuid:    r.account.Puuid,
		Region:   r.region,
	}, nil
}

func (s *AggregationService) OverallMastery(ctx context.Context, accounts []domain.AccountRef) (*domain.OverallMasteryResult, error) {
	if err := domain.ValidateAccounts(accounts); err != nil {
		return nil, err
	}

	rows := make([]domain.OverallAccountRow, len(accounts))
	entries := make([][]domain.MasteryEntry, len(accounts))

	s.forEachAccount(ctx, accounts, func(ctx context.Context, i int, ref domain.AccountRef) error {
		rows[i] = domain.OverallAccountRow{Name: ref.Name, Region: ref.Region}
		r, err := s.resolve(ctx, ref)
		rows[i].Region = r.region
		if err != nil {
			return err
		}
		rows[i].Name = r.account.RiotID()

		list, err := s.riot.Masteries(ctx, r.region, r.account.Puuid)
		if err != nil {
			return err
		}
		entries[i] = list
		rows[i].Champions = len(list)
		for _, e := range list {
			rows[i].TotalPoints += e.ChampionPoints
		}
		return nil
	}, func(i int, err error) {
		rows[i].Error = err.Error()
	})

	return &domain.OverallMasteryResult{
		Champions: s.withNames(ctx, MergeMasteries(entries)),
		Accounts:  rows,
	}, nil
}

// MergeMasteries sums points per champion across accounts and sorts by total
// descending, ties by champion id.
func MergeMasteries(perAccount [][]domain.MasteryEntry) []domain.ChampionTotal {
	sums := make(map[int]int)
	for _, list := range perAccount {
		for _, e := range list {
			sums[e.ChampionID] += e.ChampionPoints
		}
	}

	totals := make([]domain.ChampionTotal, 0, len(sums))
	for id, pts := range sums {
		totals = append(totals, domain.ChampionTotal{ChampionID: id, TotalPoints: pts})
	}
	slices.SortFunc(totals, func(a, b domain.ChampionTotal) int {
		if a.TotalPoints != b.TotalPoints {
			return b.TotalPoints - a.TotalPoints
		}
		return a.ChampionID - b.ChampionID
	})
	return totals
}

func (s *AggregationService) withNames(ctx context.Context, totals []domain.ChampionTotal) []domain.ChampionTotal {
	if s.names == nil || len(totals) == 0 {
		return totals
	}
	names := s.names.Names(ctx)
	for i := range totals {
		totals[i].ChampionName = names[totals[i].ChampionID]
	}
	return totals
}

func (s *AggregationService) ChampionMastery(ctx context.Context, req domain.ChampionMasteryRequest) (*domain.ChampionMasteryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	championID := int(req.ChampionID)

	rows := make([]domain.ChampionMasteryRow, len(req.Accounts))
	s.forEachAccount(ctx, req.Accounts, func(ctx context.Context, i int, ref domain.AccountRef) error {
		rows[i] = domain.ChampionMasteryRow{Name: ref.Name, Region: ref.Region}
		r, err := s.resolve(ctx, ref)
		rows[i].Region = r.region
		if err != nil {
			return err
		}
		rows[i].Name = r.account.RiotID()

		entry, err := s.riot.ChampionMastery(ctx, r.region, r.account.Puuid, championID)
		if err != nil {
			return err
		}
		rows[i].Points = entry.ChampionPoints
		rows[i].Level = entry.ChampionLevel
		return nil
	}, func(i int, err error) {
		rows[i].Error = err.Error()
	})

	result := &domain.ChampionMasteryResult{
		ChampionID:   championID,
		ChampionName: s.championName(ctx, req),
		Accounts:     rows,
	}
	for _, row := range rows {
		result.TotalPoints += row.Points
	}
	return result, nil
}

func (s *AggregationService) championName(ctx context.Context, req domain.ChampionMasteryRequest) *string {
	if req.ChampionName != "" {
		return &req.ChampionName
	}
	if s.names == nil {
		return nil
	}
	if name := s.names.Names(ctx)[int(req.ChampionID)]; name != "" {
		return &name
	}
	return nil
}

func (s *AggregationService) Playtime(ctx context.Context, accounts []domain.AccountRef) (*domain.PlaytimeResult, error) {
	if err := domain.ValidateAccounts(accounts); err != nil {
		return nil, err
	}

	rows := make([]domain.PlaytimeRow, len(accounts))
	s.forEachAccount(ctx, accounts, func(ctx context.Context, i int, ref domain.AccountRef) error {
		rows[i] = domain.PlaytimeRow{Name: ref.Name, Region: ref.Region}
		r, err := s.resolve(ctx, ref)
		rows[i].Region = r.region
		if err != nil {
			return err
		}
		rows[i].Name = r.account.RiotID()
		rows[i] = s.playtimeRow(ctx, rows[i], r)
		return nil
	}, func(i int, err error) {
		rows[i].Error = err.Error()
		rows[i].EstimationSource = playtime.SourceError
	})

	result := &domain.PlaytimeResult{Accounts: rows}
	for _, row := range rows {
		result.TotalGames += row.TotalGames
		result.TotalHours += row.EstimatedHours
	}
	return result, nil
}

// playtimeRow fetches level and match count independently; either may fail
// without failing the row.
func (s *AggregationService) playtimeRow(ctx context.Context, row domain.PlaytimeRow, r resolved) domain.PlaytimeRow {
	var (
		profile  domain.SummonerProfile
		levelErr error
		matches  domain.MatchCount
	)

	var g errgroup.Group
	g.Go(func() error {
		profile, levelErr = s.riot.Summoner(ctx, r.region, r.account.Puuid)
		return nil
	})
	g.Go(func() error {
		matches = s.riot.CountMatches(ctx, r.region, r.account.Puuid)
		return nil
	})
	g.Wait() //nolint:errcheck

	if levelErr != nil {
		s.logger.Warn().
			Err(levelErr).
			Str("puuid", logger.ShortID(r.account.Puuid)).
			Msg("summoner level unavailable")
	}

	est := playtime.Compute(matches.Count, profile.SummonerLevel, levelErr != nil || matches.Partial)

	row.TotalGames = matches.Count
	row.Level = profile.SummonerLevel
	row.EstimatedHours = est.Hours
	row.EstimationSource = est.Source
	row.HoursFromMatches = est.HoursFromMatches
	row.HoursFromLevel = est.HoursFromLevel
	return row
}

// forEachAccount runs fn for every account with at most s.concurrency in
// flight. A non-nil error from fn is handed to onErr for that index and never
// stops the others. Result slots are indexed, so input order is kept.
func (s *AggregationService) forEachAccount(
	ctx context.Context,
	accounts []domain.AccountRef,
	fn func(ctx context.Context, i int, ref domain.AccountRef) error,
	onErr func(i int, err error),
) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, ref := range accounts {
		i, ref := i, ref
		g.Go(func() error {
			if err := s.safeCall(ctx, i, ref, fn); err != nil {
				s.logger.Warn().
					Err(err).
					Str("account", ref.Name).
					Str("region", ref.Region).
					Msg("account failed, continuing")
				onErr(i, err)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck
}

func (s *AggregationService) safeCall(
	ctx context.Context,
	i int,
	ref domain.AccountRef,
	fn func(ctx context.Context, i int, ref domain.AccountRef) error,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return fn(ctx, i, ref)
}
