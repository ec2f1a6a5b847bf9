package api

// Upstream payloads. Riot omits fields freely, so everything optional is a
// pointer and callers zero-default at the boundary.

type AccountResponse struct {
	Puuid    string  `json:"puuid"`
	GameName *string `json:"gameName"`
	TagLine  *string `json:"tagLine"`
}

type ChampionMasteryResponse struct {
	Puuid          string `json:"puuid"`
	ChampionID     *int   `json:"championId"`
	ChampionLevel  *int   `json:"championLevel"`
	ChampionPoints *int   `json:"championPoints"`
	LastPlayTime   *int64 `json:"lastPlayTime"`
}

type SummonerResponse struct {
	Puuid         string `json:"puuid"`
	ProfileIconID *int   `json:"profileIconId"`
	RevisionDate  *int64 `json:"revisionDate"`
	SummonerLevel *int   `json:"summonerLevel"`
}

type MatchIDsResponse []string

func IntOrZero(p *int) int {
	if p == nil || *p < 0 {
		return 0
	}
	return *p
}

func StringOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}
