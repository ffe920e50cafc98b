// Package cli implements the timeclockctl command-line client.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/timeclock/internal/domain/compliance"
	"github.com/okian/timeclock/internal/domain/daily"
	"github.com/okian/timeclock/internal/domain/geo"
	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/internal/domain/types"
)

// Identity headers understood by the server.
const (
	headerOrganizationID = "X-Organization-ID"
	headerWorkerID       = "X-Worker-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

// ErrMissingIdentity is returned when no worker is configured.
var ErrMissingIdentity = errors.New("worker and organization are required")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status         int      `json:"-"`
	Code           string   `json:"code"`
	Message        string   `json:"message"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	RadiusMeters   *float64 `json:"radius_meters,omitempty"`
}

func (e *APIError) Error() string {
	if e.DistanceMeters != nil && e.RadiusMeters != nil {
		return fmt.Sprintf("%s: %.0fm from the worksite, allowed %.0fm", e.Code, *e.DistanceMeters, *e.RadiusMeters)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Client talks to the timeclock HTTP API as one worker.
type Client struct {
	baseURL        string
	organizationID string
	workerID       string
	http           *http.Client
}

// NewClient builds a client for baseURL acting as workerID in organizationID.
func NewClient(baseURL, organizationID, workerID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		organizationID: organizationID,
		workerID:       workerID,
		http:           &http.Client{Timeout: timeout},
	}
}

type clockBody struct {
	Kind       model.Kind `json:"kind"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	DeviceInfo string     `json:"device_info,omitempty"`
}

// Clock punches in or out at p. A nil p lets the server apply its fallback.
func (c *Client) Clock(ctx context.Context, kind model.Kind, p *geo.Point, deviceInfo, idempotencyKey string) (model.ClockEvent, error) {
	body := clockBody{Kind: kind, DeviceInfo: deviceInfo}
	if p != nil {
		lat, lon := p.Latitude, p.Longitude
		body.Latitude, body.Longitude = &lat, &lon
	}
	var ev model.ClockEvent
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[headerIdempotencyKey] = idempotencyKey
	}
	err := c.do(ctx, http.MethodPost, "/v1/clock", nil, body, headers, &ev)
	return ev, err
}

// State returns the worker's in/out state.
func (c *Client) State(ctx context.Context) (types.ClockState, error) {
	var st types.ClockState
	err := c.do(ctx, http.MethodGet, "/v1/state", nil, nil, nil, &st)
	return st, err
}

// Day returns one day record. Empty arguments mean the caller and today.
func (c *Client) Day(ctx context.Context, workerID, date string) (model.DayRecord, error) {
	var rec model.DayRecord
	err := c.do(ctx, http.MethodGet, "/v1/day", query("worker_id", workerID, "date", date), nil, nil, &rec)
	return rec, err
}

// Days returns the day records between from and to inclusive.
func (c *Client) Days(ctx context.Context, workerID, from, to string) (daily.Report, error) {
	var rep daily.Report
	err := c.do(ctx, http.MethodGet, "/v1/days", query("worker_id", workerID, "from", from, "to", to), nil, nil, &rep)
	return rep, err
}

// Team returns the organization's view of date.
func (c *Client) Team(ctx context.Context, date string) (types.TeamDay, error) {
	var view types.TeamDay
	err := c.do(ctx, http.MethodGet, "/v1/team-day", query("date", date), nil, nil, &view)
	return view, err
}

// Compliance reports whether today's scheduled entry is missing.
func (c *Client) Compliance(ctx context.Context) (compliance.Result, error) {
	var res compliance.Result
	err := c.do(ctx, http.MethodGet, "/v1/compliance", nil, nil, nil, &res)
	return res, err
}

func query(kv ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	return q
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in any, headers map[string]string, out any) error {
	if c.workerID == "" || c.organizationID == "" {
		return ErrMissingIdentity
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerOrganizationID, c.organizationID)
	req.Header.Set(headerWorkerID, c.workerID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// HTTPLocator asks a position service at u for {"latitude","longitude"}.
func HTTPLocator(client *http.Client, u string) geo.Locator {
	return geo.LocatorFunc(func(ctx context.Context) (geo.Point, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return geo.Point{}, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return geo.Point{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return geo.Point{}, fmt.Errorf("position service answered %s", resp.Status)
		}
		var p geo.Point
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return geo.Point{}, fmt.Errorf("decode position: %w", err)
		}
		return p, nil
	})
}
