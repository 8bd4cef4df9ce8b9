// Package exotel provides a read-only client for the Exotel Calls API.
//
// The Calls API returns call logs (status, duration, price) but never IVR
// digit inputs — those arrive only through Passthru webhook callbacks, which
// is why the path store exists at all.
package exotel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/ivr-analytics/internal/model"
)

const (
	defaultBaseURL  = "https://api.exotel.com"
	defaultPageSize = 100

	dateLayout = "2006-01-02 15:04:05"
)

// Client fetches call logs from the Exotel API.
type Client interface {
	// GetCalls fetches call logs, optionally bounded by start/end time
	// (YYYY-MM-DD). Limit caps the page size; 0 uses the client default.
	GetCalls(ctx context.Context, start, end string, limit int) ([]model.CallRecord, error)

	// GetCallDetails fetches a single call by SID.
	GetCallDetails(ctx context.Context, callSid string) (*model.CallRecord, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
}

// WithPageSize sets the default page size for GetCalls.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		c.pageSize = n
	}
}

type httpClient struct {
	sid      string
	apiKey   string
	apiToken string
	baseURL  string
	pageSize int
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates an Exotel API client authenticated with the account SID,
// API key, and API token.
func NewClient(sid, apiKey, apiToken string, opts ...Option) Client {
	c := &httpClient{
		sid:      sid,
		apiKey:   apiKey,
		apiToken: apiToken,
		baseURL:  defaultBaseURL,
		pageSize: defaultPageSize,
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// flexNumber tolerates the provider sending numeric fields as either bare
// numbers or quoted strings, which varies by account.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	*n = flexNumber(strings.Trim(string(b), `"`))
	return nil
}

func (n flexNumber) Int() int {
	v, _ := strconv.Atoi(string(n))
	return v
}

func (n flexNumber) Float() float64 {
	v, _ := strconv.ParseFloat(string(n), 64)
	return v
}

// apiCall is the provider's wire shape.
type apiCall struct {
	Sid          string     `json:"Sid"`
	DateCreated  string     `json:"DateCreated"`
	From         string     `json:"From"`
	To           string     `json:"To"`
	Status       string     `json:"Status"`
	Duration     flexNumber `json:"Duration"`
	Direction    string     `json:"Direction"`
	Price        flexNumber `json:"Price"`
	RecordingURL string     `json:"RecordingUrl"`
}

type callsResponse struct {
	Calls []apiCall `json:"Calls"`
}

type callResponse struct {
	Call apiCall `json:"Call"`
}

func (c *httpClient) GetCalls(ctx context.Context, start, end string, limit int) ([]model.CallRecord, error) {
	if limit <= 0 {
		limit = c.pageSize
	}

	params := url.Values{}
	params.Set("PageSize", strconv.Itoa(limit))
	if start != "" {
		params.Set("StartTime", start)
	}
	if end != "" {
		params.Set("EndTime", end)
	}

	endpoint := fmt.Sprintf("%s/v1/Accounts/%s/Calls.json?%s", c.baseURL, c.sid, params.Encode())

	var resp callsResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	records := make([]model.CallRecord, 0, len(resp.Calls))
	for _, call := range resp.Calls {
		records = append(records, call.toRecord())
	}
	return records, nil
}

func (c *httpClient) GetCallDetails(ctx context.Context, callSid string) (*model.CallRecord, error) {
	endpoint := fmt.Sprintf("%s/v1/Accounts/%s/Calls/%s.json", c.baseURL, c.sid, url.PathEscape(callSid))

	var resp callResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	rec := resp.Call.toRecord()
	return &rec, nil
}

func (c *httpClient) get(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "exotel: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return eris.Wrap(err, "exotel: create request")
	}
	req.SetBasicAuth(c.apiKey, c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "exotel: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return eris.Wrap(err, "exotel: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("exotel: unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "exotel: decode response")
	}
	return nil
}

func (a apiCall) toRecord() model.CallRecord {
	rec := model.CallRecord{
		CallSid:      a.Sid,
		From:         a.From,
		To:           a.To,
		Status:       model.CallStatus(a.Status),
		Direction:    model.CallDirection(a.Direction),
		RecordingURL: a.RecordingURL,
	}
	if t, err := time.Parse(dateLayout, a.DateCreated); err == nil {
		rec.DateCreated = t
	}
	rec.Duration = a.Duration.Int()
	rec.Price = a.Price.Float()
	return rec
}
