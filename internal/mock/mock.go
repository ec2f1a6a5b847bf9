package mock

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"mastery-tracker/internal/config"
	"mastery-tracker/internal/constants"
	"mastery-tracker/internal/domain"
	"mastery-tracker/internal/playtime"

	"github.com/rs/zerolog"
)

//go:embed fixture.json
var defaultFixture []byte

const (
	mockGames       = 1234
	mockAccountName = "MockAccount#EUW"
	sourceMock      = "mock"
)

type Fixture struct {
	ChampionID   int                         `json:"championId"`
	ChampionName string                      `json:"championName"`
	Accounts     []domain.ChampionMasteryRow `json:"accounts"`
}

// Aggregator serves static fixture data in place of the live aggregation.
// Requests are still validated.
type Aggregator struct {
	fixture Fixture
	logger  zerolog.Logger
}

func New(fixture Fixture, logger zerolog.Logger) *Aggregator {
	return &Aggregator{fixture: fixture, logger: logger.With().Str("component", "mock").Logger()}
}

// Load reads the fixture from path, or the embedded one when path is empty.
func Load(path string, logger zerolog.Logger) (*Aggregator, error) {
	raw := defaultFixture
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read mock data: %w", err)
		}
		raw = b
	}

	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse mock data: %w", err)
	}

	logger.Info().
		Str("path", path).
		Int("accounts", len(f.Accounts)).
		Msg("mock data loaded")
	return New(f, logger), nil
}

func NewFromConfig(cfg *config.Config, logger zerolog.Logger) (*Aggregator, error) {
	return Load(cfg.MockDataPath, logger)
}

func (a *Aggregator) Account(_ context.Context, ref domain.AccountRef) (*domain.AccountLookup, error) {
	region, err := domain.NormalizeRegion(ref.Region)
	if err != nil {
		return nil, err
	}
	gameName, tagLine, err := domain.SplitRiotID(ref.Name)
	if err != nil {
		return nil, err
	}
	return &domain.AccountLookup{
		GameName: gameName,
		TagLine:  tagLine,
		Puuid:    constants.MockPUUID,
		Region:   region,
	}, nil
}

func (a *Aggregator) OverallMastery(_ context.Context, accounts []domain.AccountRef) (*domain.OverallMasteryResult, error) {
	if err := domain.ValidateAccounts(accounts); err != nil {
		return nil, err
	}

	total := 0
	rows := make([]domain.OverallAccountRow, 0, len(a.fixture.Accounts))
	for _, acc := range a.fixture.Accounts {
		total += acc.Points
		rows = append(rows, domain.OverallAccountRow{
			Name:        acc.Name,
			Region:      acc.Region,
			Champions:   1,
			TotalPoints: acc.Points,
		})
	}

	return &domain.OverallMasteryResult{
		Champions: []domain.ChampionTotal{{
			ChampionID:   a.fixture.ChampionID,
			ChampionName: a.fixture.ChampionName,
			TotalPoints:  total,
		}},
		Accounts: rows,
	}, nil
}

func (a *Aggregator) ChampionMastery(_ context.Context, req domain.ChampionMasteryRequest) (*domain.ChampionMasteryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	name := req.ChampionName
	if name == "" {
		name = a.fixture.ChampionName
	}

	result := &domain.ChampionMasteryResult{
		ChampionID: int(req.ChampionID),
		Accounts:   append([]domain.ChampionMasteryRow(nil), a.fixture.Accounts...),
	}
	if name != "" {
		result.ChampionName = &name
	}
	for _, row := range result.Accounts {
		result.TotalPoints += row.Points
	}
	return result, nil
}

func (a *Aggregator) Playtime(_ context.Context, accounts []domain.AccountRef) (*domain.PlaytimeResult, error) {
	if err := domain.ValidateAccounts(accounts); err != nil {
		return nil, err
	}

	est := playtime.Compute(mockGames, 0, false)
	return &domain.PlaytimeResult{
		TotalGames: mockGames,
		TotalHours: est.Hours,
		Accounts: []domain.PlaytimeRow{{
			Name:             mockAccountName,
			Region:           constants.DefaultRegion,
			TotalGames:       mockGames,
			EstimatedHours:   est.Hours,
			EstimationSource: sourceMock,
			HoursFromMatches: est.HoursFromMatches,
		}},
	}, nil
}
