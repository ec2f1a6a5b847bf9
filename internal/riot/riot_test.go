package riot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"mastery-tracker/internal/api"
	"mastery-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type fakeDoer struct {
	mu      sync.Mutex
	urls    []string
	respond func(u string) ([]byte, error)
}

func (f *fakeDoer) Get(_ context.Context, u string) ([]byte, error) {
	f.mu.Lock()
	f.urls = append(f.urls, u)
	f.mu.Unlock()
	return f.respond(u)
}

func newTestClient(f *fakeDoer, ceiling int) *Client {
	return New(f, Options{
		AccountCluster:    "europe",
		MatchCountCeiling: ceiling,
		BaseURL:           "https://%s.test",
	}, zerolog.Nop())
}

// pageSource answers match-id pages with the given sizes, clamped to the requested count.
func pageSource(sizes ...int) func(string) ([]byte, error) {
	page := 0
	return func(raw string) ([]byte, error) {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		requested, _ := strconv.Atoi(u.Query().Get("count"))
		n := 0
		if page < len(sizes) {
			n = sizes[page]
		} else if len(sizes) > 0 && sizes[len(sizes)-1] < 0 {
			n = requested
		}
		if n < 0 || n > requested {
			n = requested
		}
		page++
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf(`"EUW1_%d"`, i)
		}
		return []byte("[" + strings.Join(ids, ",") + "]"), nil
	}
}

func TestRoutingCluster(t *testing.T) {
	tests := map[string]string{
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
		"me1":  "europe",
		"":     "europe",
	}
	for region, want := range tests {
		if got := RoutingCluster(region); got != want {
			t.Errorf("RoutingCluster(%q) = %q, want %q", region, got, want)
		}
	}
}

func TestResolveRiotID(t *testing.T) {
	f := &fakeDoer{respond: func(string) ([]byte, error) {
		return []byte(`{"puuid":"abc-123","gameName":"Hide on bush","tagLine":"KR1"}`), nil
	}}
	c := newTestClient(f, 0)

	acc, err := c.ResolveRiotID(context.Background(), "Hide on bush#KR1")
	if err != nil {
		t.Fatalf("ResolveRiotID() error: %v", err)
	}
	want := domain.RiotAccount{GameName: "Hide on bush", TagLine: "KR1", Puuid: "abc-123"}
	if *acc != want {
		t.Errorf("account = %+v, want %+v", *acc, want)
	}
	if got, want := f.urls[0], "https://europe.test/riot/account/v1/accounts/by-riot-id/Hide%20on%20bush/KR1"; got != want {
		t.Errorf("url = %s, want %s", got, want)
	}
}

func TestResolveRiotIDSplitsOnLastHash(t *testing.T) {
	f := &fakeDoer{respond: func(string) ([]byte, error) {
		return []byte(`{"puuid":"p"}`), nil
	}}
	c := newTestClient(f, 0)

	acc, err := c.ResolveRiotID(context.Background(), "a#b#EUW")
	if err != nil {
		t.Fatalf("ResolveRiotID() error: %v", err)
	}
	if acc.GameName != "a#b" || acc.TagLine != "EUW" {
		t.Errorf("account = %+v, want gameName a#b and tag EUW from the request", acc)
	}
}

func TestResolveRiotIDRejectsMissingTag(t *testing.T) {
	f := &fakeDoer{respond: func(string) ([]byte, error) { return nil, errors.New("should not be called") }}
	c := newTestClient(f, 0)

	_, err := c.ResolveRiotID(context.Background(), "NoTagHere")
	if !domain.IsValidation(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(f.urls) != 0 {
		t.Errorf("made %d upstream calls, want 0", len(f.urls))
	}
}

func TestMasteriesZeroDefaultsMissingFields(t *testing.T) {
	f := &fakeDoer{respond: func(string) ([]byte, error) {
		return []byte(`[
			{"championId": 266, "championPoints": 1200, "championLevel": 5},
			{"championId": 103},
			{"championPoints": 99}
		]`), nil
	}}
	c := newTestClient(f, 0)

	got, err := c.Masteries(context.Background(), "euw1", "p")
	if err != nil {
		t.Fatalf("Masteries() error: %v", err)
	}
	want := []domain.MasteryEntry{
		{ChampionID: 266, ChampionPoints: 1200, ChampionLevel: 5},
		{ChampionID: 103},
	}
	if len(got) != len(want) {
		t.Fatalf("entries = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if !strings.HasPrefix(f.urls[0], "https://euw1.test/lol/champion-mastery/v4/") {
		t.Errorf("url = %s, want platform host", f.urls[0])
	}
}

func TestChampionMasteryNotPlayed(t *testing.T) {
	f := &fakeDoer{respond: func(u string) ([]byte, error) {
		return nil, &api.UpstreamError{URL: u, StatusCode: http.StatusNotFound}
	}}
	c := newTestClient(f, 0)

	got, err := c.ChampionMastery(context.Background(), "na1", "p", 157)
	if err != nil {
		t.Fatalf("ChampionMastery() error: %v", err)
	}
	if got != (domain.MasteryEntry{ChampionID: 157}) {
		t.Errorf("entry = %+v, want zero entry for 157", got)
	}
	if !strings.HasSuffix(f.urls[0], "/by-puuid/p/by-champion/157") {
		t.Errorf("url = %s", f.urls[0])
	}
}

func TestChampionMasteryPropagatesOtherErrors(t *testing.T) {
	f := &fakeDoer{respond: func(u string) ([]byte, error) {
		return nil, &api.UpstreamError{URL: u, StatusCode: http.StatusForbidden, Body: "Forbidden"}
	}}
	c := newTestClient(f, 0)

	if _, err := c.ChampionMastery(context.Background(), "na1", "p", 157); !api.IsStatus(err, http.StatusForbidden) {
		t.Errorf("error = %v, want 403 UpstreamError", err)
	}
}

func TestSummoner(t *testing.T) {
	f := &fakeDoer{respond: func(string) ([]byte, error) {
		return []byte(`{"puuid":"p","summonerLevel":412}`), nil
	}}
	c := newTestClient(f, 0)

	got, err := c.Summoner(context.Background(), "kr", "p")
	if err != nil {
		t.Fatalf("Summoner() error: %v", err)
	}
	if got.SummonerLevel != 412 {
		t.Errorf("SummonerLevel = %d, want 412", got.SummonerLevel)
	}
}

func TestCountMatchesStopsOnShortPage(t *testing.T) {
	f := &fakeDoer{respond: pageSource(100, 100, 37)}
	c := newTestClient(f, 2000)

	got := c.CountMatches(context.Background(), "kr", "p")
	if got.Count != 237 {
		t.Errorf("Count = %d, want 237", got.Count)
	}
	if len(f.urls) != 3 {
		t.Errorf("page requests = %d, want 3", len(f.urls))
	}
	if got.Capped || got.Partial {
		t.Errorf("flags = %+v, want neither capped nor partial", got)
	}
	if !strings.HasPrefix(f.urls[0], "https://asia.test/lol/match/v5/matches/by-puuid/p/ids?start=0&count=100") {
		t.Errorf("first url = %s", f.urls[0])
	}
	if !strings.Contains(f.urls[2], "start=200&count=100") {
		t.Errorf("third url = %s", f.urls[2])
	}
}

func TestCountMatchesStopsAtCeiling(t *testing.T) {
	tests := []struct {
		ceiling   int
		wantPages int
	}{
		{2000, 20},
		{250, 3},
		{100, 1},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.ceiling), func(t *testing.T) {
			f := &fakeDoer{respond: pageSource(-1)}
			c := newTestClient(f, tt.ceiling)

			got := c.CountMatches(context.Background(), "euw1", "p")
			if got.Count != tt.ceiling {
				t.Errorf("Count = %d, want %d", got.Count, tt.ceiling)
			}
			if len(f.urls) != tt.wantPages {
				t.Errorf("page requests = %d, want %d", len(f.urls), tt.wantPages)
			}
			if !got.Capped {
				t.Error("Capped = false, want true")
			}
		})
	}
}

func TestCountMatchesReturnsPartialOnPageError(t *testing.T) {
	pages := pageSource(100, 100, 100)
	calls := 0
	f := &fakeDoer{respond: func(u string) ([]byte, error) {
		calls++
		if calls == 3 {
			return nil, &api.UpstreamError{URL: u, StatusCode: http.StatusServiceUnavailable}
		}
		return pages(u)
	}}
	c := newTestClient(f, 2000)

	got := c.CountMatches(context.Background(), "euw1", "p")
	if got.Count != 200 || !got.Partial || got.Pages != 2 {
		t.Errorf("result = %+v, want 200 over 2 pages flagged partial", got)
	}
}
