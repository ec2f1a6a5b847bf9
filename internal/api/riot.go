package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"mastery-tracker/internal/config"
	"mastery-tracker/internal/constants"

	"github.com/valyala/fasthttp"
)

// UpstreamError is any non-2xx answer from the Riot API.
type UpstreamError struct {
	URL        string
	StatusCode int
	Body       string
	// RetryAfter is the parsed Retry-After header, zero when absent.
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Riot API error %d: %s", e.StatusCode, e.Body)
}

func IsStatus(err error, code int) bool {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode == code
	}
	return false
}

type RiotClient struct {
	apiKey      string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

// RateLimitInfo holds the last rate-limit headers Riot sent back.
type RateLimitInfo struct {
	AppLimit         string    `json:"appLimit"`
	AppLimitCount    string    `json:"appLimitCount"`
	MethodLimit      string    `json:"methodLimit"`
	MethodLimitCount string    `json:"methodLimitCount"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func NewRiotClient(cfg *config.Config) *RiotClient {
	return &RiotClient{
		apiKey: cfg.RiotAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         cfg.CallTimeout,
			WriteTimeout:        cfg.CallTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *RiotClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *RiotClient) updateRateLimit(resp *fasthttp.Response) {
	appLimit := string(resp.Header.Peek("X-App-Rate-Limit"))
	methodLimit := string(resp.Header.Peek("X-Method-Rate-Limit"))
	if appLimit == "" && methodLimit == "" {
		return
	}

	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	c.rateLimit.AppLimit = appLimit
	c.rateLimit.AppLimitCount = string(resp.Header.Peek("X-App-Rate-Limit-Count"))
	c.rateLimit.MethodLimit = methodLimit
	c.rateLimit.MethodLimitCount = string(resp.Header.Peek("X-Method-Rate-Limit-Count"))
	c.rateLimit.UpdatedAt = time.Now()
}

// Get issues one authenticated GET and returns the raw JSON body.
func (c *RiotClient) Get(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Riot-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
	}

	c.updateRateLimit(resp)

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		body := resp.Body()
		if len(body) > constants.ErrorBodyMaxBytes {
			body = body[:constants.ErrorBodyMaxBytes]
		}
		return nil, &UpstreamError{
			URL:        url,
			StatusCode: status,
			Body:       string(body),
			RetryAfter: ParseRetryAfter(string(resp.Header.Peek("Retry-After"))),
		}
	}

	// resp is released on return
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// ParseRetryAfter reads a Retry-After value in seconds, fractions allowed.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
