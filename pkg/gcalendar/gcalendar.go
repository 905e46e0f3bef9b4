// Package gcalendar is a thin client for the Google Calendar v3 events API.
// It speaks plain REST with a bearer token; token refresh is the deployer's
// concern (gcloud, workload identity, or a sidecar).
package gcalendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/orbita/agent/contract"
)

type Config struct {
	BaseURL     string        `split_words:"true" default:"https://www.googleapis.com/calendar/v3"`
	AccessToken string        `split_words:"true" required:"true"`
	CalendarID  string        `envconfig:"CALENDAR_ID" split_words:"true" default:"primary"`
	Timeout     time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL     string
	accessToken string
	calendarID  string
	httpClient  *http.Client
}

var _ contractx.CalendarAPI = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("gcalendar base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("gcalendar access token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	calendarID := strings.TrimSpace(cfg.CalendarID)
	if calendarID == "" {
		calendarID = "primary"
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: strings.TrimSpace(cfg.AccessToken),
		calendarID:  calendarID,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// wire types for the v3 events resource

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventResource struct {
	ID          string      `json:"id,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	Status      string      `json:"status,omitempty"`
	Start       eventTime   `json:"start"`
	End         eventTime   `json:"end"`
	Attendees   []attendee  `json:"attendees,omitempty"`
}

type attendee struct {
	Email string `json:"email"`
}

type eventList struct {
	Items []eventResource `json:"items"`
}

func (c *Client) Events(ctx context.Context, timeMin, timeMax time.Time, maxResults int) ([]contractx.CalendarEvent, error) {
	q := url.Values{}
	q.Set("timeMin", timeMin.Format(time.RFC3339))
	q.Set("timeMax", timeMax.Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	if maxResults > 0 {
		q.Set("maxResults", strconv.Itoa(maxResults))
	}

	var list eventList
	if err := c.do(ctx, http.MethodGet, c.eventsPath("")+"?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}

	out := make([]contractx.CalendarEvent, 0, len(list.Items))
	for _, item := range list.Items {
		ev, err := toEvent(item)
		if err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (c *Client) CreateEvent(ctx context.Context, in contractx.EventInput) (contractx.CalendarEvent, error) {
	var created eventResource
	if err := c.do(ctx, http.MethodPost, c.eventsPath(""), fromInput(in), &created); err != nil {
		return contractx.CalendarEvent{}, err
	}
	return toEvent(created)
}

func (c *Client) UpdateEvent(ctx context.Context, id string, in contractx.EventInput) (contractx.CalendarEvent, error) {
	if strings.TrimSpace(id) == "" {
		return contractx.CalendarEvent{}, errors.New("event id is required")
	}
	var updated eventResource
	if err := c.do(ctx, http.MethodPut, c.eventsPath(id), fromInput(in), &updated); err != nil {
		return contractx.CalendarEvent{}, err
	}
	return toEvent(updated)
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("event id is required")
	}
	return c.do(ctx, http.MethodDelete, c.eventsPath(id), nil, nil)
}

func (c *Client) eventsPath(id string) string {
	base := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(c.calendarID))
	if id == "" {
		return base
	}
	return base + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gcalendar: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("gcalendar: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gcalendar: %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gcalendar: %s returned status=%d body=%s", method, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gcalendar: decode response: %w", err)
	}
	return nil
}

func fromInput(in contractx.EventInput) eventResource {
	res := eventResource{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start:       eventTime{DateTime: in.Start.Format(time.RFC3339), TimeZone: in.Timezone},
		End:         eventTime{DateTime: in.End.Format(time.RFC3339), TimeZone: in.Timezone},
	}
	for _, email := range in.Attendees {
		res.Attendees = append(res.Attendees, attendee{Email: email})
	}
	return res
}

func toEvent(res eventResource) (contractx.CalendarEvent, error) {
	start, err := parseEventTime(res.Start)
	if err != nil {
		return contractx.CalendarEvent{}, fmt.Errorf("gcalendar: event=%s start: %w", res.ID, err)
	}
	end, err := parseEventTime(res.End)
	if err != nil {
		return contractx.CalendarEvent{}, fmt.Errorf("gcalendar: event=%s end: %w", res.ID, err)
	}
	return contractx.CalendarEvent{
		ID:          res.ID,
		Summary:     res.Summary,
		Description: res.Description,
		Start:       start,
		End:         end,
		Status:      res.Status,
		Location:    res.Location,
		Attendees:   len(res.Attendees),
	}, nil
}

func parseEventTime(t eventTime) (time.Time, error) {
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		return time.Parse("2006-01-02", t.Date)
	}
	return time.Time{}, errors.New("event time is empty")
}
