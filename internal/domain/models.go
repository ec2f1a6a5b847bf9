package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type AccountRef struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

type RiotAccount struct {
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
	Puuid    string `json:"puuid"`
}

// RiotID renders the account as GameName#Tag.
func (a RiotAccount) RiotID() string {
	return a.GameName + "#" + a.TagLine
}

type AccountLookup struct {
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
	Puuid    string `json:"puuid"`
	Region   string `json:"region"`
}

type MasteryEntry struct {
	ChampionID     int `json:"championId"`
	ChampionPoints int `json:"championPoints"`
	ChampionLevel  int `json:"championLevel"`
}

type SummonerProfile struct {
	SummonerLevel int `json:"summonerLevel"`
}

type MatchCount struct {
	Count int
	Pages int
	// Capped is set when pagination stopped at the safety ceiling.
	Capped bool
	// Partial is set when a page fetch failed and Count is what was gathered before it.
	Partial bool
}

// ChampionID accepts a JSON number or a numeric string.
type ChampionID int

func (c *ChampionID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*c = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			*c = 0
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("championId must be an integer: %q", s)
	}
	*c = ChampionID(n)
	return nil
}

type AccountsRequest struct {
	Accounts []AccountRef `json:"accounts"`
}

type ChampionMasteryRequest struct {
	ChampionID   ChampionID   `json:"championId"`
	ChampionName string       `json:"championName,omitempty"`
	Accounts     []AccountRef `json:"accounts"`
}

type ChampionTotal struct {
	ChampionID   int    `json:"championId"`
	ChampionName string `json:"championName,omitempty"`
	TotalPoints  int    `json:"totalPoints"`
}

type OverallAccountRow struct {
	Name        string `json:"name"`
	Region      string `json:"region"`
	Champions   int    `json:"champions"`
	TotalPoints int    `json:"totalPoints"`
	Error       string `json:"error,omitempty"`
}

type OverallMasteryResult struct {
	Champions []ChampionTotal     `json:"champions"`
	Accounts  []OverallAccountRow `json:"accounts"`
}

type ChampionMasteryRow struct {
	Name   string `json:"name"`
	Region string `json:"region"`
	Points int    `json:"points"`
	Level  int    `json:"level"`
	Error  string `json:"error,omitempty"`
}

type ChampionMasteryResult struct {
	ChampionID   int                  `json:"championId"`
	ChampionName *string              `json:"championName"`
	TotalPoints  int                  `json:"totalPoints"`
	Accounts     []ChampionMasteryRow `json:"accounts"`
}

type PlaytimeRow struct {
	Name             string `json:"name"`
	Region           string `json:"region"`
	TotalGames       int    `json:"totalGames"`
	EstimatedHours   int    `json:"estimatedHours"`
	EstimationSource string `json:"estimationSource"`
	Level            int    `json:"level"`
	HoursFromMatches int    `json:"hoursFromMatches"`
	HoursFromLevel   int    `json:"hoursFromLevel"`
	Error            string `json:"error,omitempty"`
}

type PlaytimeResult struct {
	TotalGames int           `json:"totalGames"`
	TotalHours int           `json:"totalHours"`
	Accounts   []PlaytimeRow `json:"accounts"`
}

// ManualRecord is one hand-tracked mastery value in the offline store.
type ManualRecord struct {
	Account   string    `json:"account"`
	Champion  string    `json:"champion"`
	Mastery   int       `json:"mastery"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ManualTotal struct {
	Champion string `json:"champion"`
	Mastery  int    `json:"mastery"`
}

type ManualAccountSummary struct {
	Account   string    `json:"name"`
	Champions int       `json:"champs"`
	Points    int       `json:"points"`
	UpdatedAt time.Time `json:"updated"`
}

type Status struct {
	Status    string            `json:"status"`
	Meta      map[string]string `json:"meta"`
	UpdatedAt *time.Time        `json:"updatedAt"`
}
