package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Google inserts events through the Calendar v3 REST API using an OAuth
// token stored on disk and refreshed as needed.
type Google struct {
	cfg   Config
	oauth *oauth2.Config
	log   *zap.Logger

	mu sync.Mutex
	ts oauth2.TokenSource
}

type GoogleOption func(*Google)

// WithTokenSource bypasses the token file.
func WithTokenSource(ts oauth2.TokenSource) GoogleOption {
	return func(g *Google) { g.ts = ts }
}

func NewGoogle(cfg Config, log *zap.Logger, opts ...GoogleOption) *Google {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Google{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{CalendarScope},
			Endpoint:     google.Endpoint,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize makes sure a usable access token is at hand, refreshing it if it
// has expired.
func (g *Google) Authorize(ctx context.Context) error {
	ts, err := g.tokenSource(ctx)
	if err != nil {
		return err
	}
	if _, err := ts.Token(); err != nil {
		g.log.Error("token refresh failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

func (g *Google) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ts != nil {
		return g.ts, nil
	}
	tok, err := LoadToken(g.cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	// The refresh must outlive the request that triggered it.
	base := g.oauth.TokenSource(context.WithoutCancel(ctx), tok)
	g.ts = &savingTokenSource{
		base: oauth2.ReuseTokenSource(tok, base),
		path: g.cfg.TokenFile,
		last: tok.AccessToken,
		log:  g.log,
	}
	return g.ts, nil
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventBody struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

type eventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

func (g *Google) InsertEvent(ctx context.Context, ev Event) (EventRef, error) {
	ts, err := g.tokenSource(ctx)
	if err != nil {
		return EventRef{}, err
	}

	payload, err := json.Marshal(eventBody{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       eventTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: g.cfg.TimeZone},
		End:         eventTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: g.cfg.TimeZone},
	})
	if err != nil {
		return EventRef{}, fmt.Errorf("%w: encode event: %v", ErrInsert, err)
	}

	apiURL := strings.TrimSuffix(g.cfg.APIBase, "/") + "/calendars/" + url.PathEscape(ev.CalendarID) + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return EventRef{}, fmt.Errorf("%w: build request: %v", ErrInsert, err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
		Timeout:   g.cfg.Timeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return EventRef{}, fmt.Errorf("%w: %v", ErrInsert, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return EventRef{}, fmt.Errorf("%w: status %d: %s", ErrUnauthorized, resp.StatusCode, body)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return EventRef{}, fmt.Errorf("%w: status %d: %s", ErrInsert, resp.StatusCode, body)
	}

	var out eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return EventRef{}, fmt.Errorf("%w: decode response: %v", ErrInsert, err)
	}

	g.log.Debug("event inserted",
		zap.String("calendar", ev.CalendarID),
		zap.String("event_id", out.ID),
		zap.String("description", ev.Description),
	)
	return EventRef{ID: out.ID, HTMLLink: out.HTMLLink}, nil
}

// AuthCodeURL is the consent page the operator opens once to grant access.
func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it in the
// token file.
func (g *Google) Exchange(ctx context.Context, code string) error {
	tok, err := g.oauth.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	if err := SaveToken(g.cfg.TokenFile, tok); err != nil {
		return err
	}

	g.mu.Lock()
	g.ts = nil
	g.mu.Unlock()
	return nil
}
