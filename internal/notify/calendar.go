package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/salonbook/apiserver/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendar inserts events through the Google Calendar v3 API.
type GoogleCalendar struct {
	service    *calendar.Service
	calendarID string
}

// OAuthConfig builds the OAuth2 client used both to refresh calendar access
// tokens and to obtain a refresh token in the first place.
func OAuthConfig(cfg config.CalendarConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}
}

// NewGoogleCalendar constructs a calendar client authenticated with the
// configured refresh token.
func NewGoogleCalendar(ctx context.Context, cfg config.CalendarConfig) (*GoogleCalendar, error) {
	if !cfg.Configured() {
		return nil, ErrCalendarNotConfigured
	}

	token := &oauth2.Token{RefreshToken: cfg.RefreshToken, TokenType: "Bearer"}
	ts := OAuthConfig(cfg).TokenSource(ctx, token)
	return NewGoogleCalendarWithOptions(ctx, cfg.CalendarID, option.WithTokenSource(ts))
}

// NewGoogleCalendarWithOptions constructs a calendar client from raw client options.
func NewGoogleCalendarWithOptions(ctx context.Context, calendarID string, opts ...option.ClientOption) (*GoogleCalendar, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(calendarID) == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{service: svc, calendarID: calendarID}, nil
}

// CreateEvent inserts the event and returns its id.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, event Event) (string, error) {
	created, err := g.service.Events.Insert(g.calendarID, &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if created.Id == "" {
		return "", errors.New("calendar returned an event without id")
	}
	return created.Id, nil
}

// CalendarID returns the target calendar.
func (g *GoogleCalendar) CalendarID() string {
	return g.calendarID
}
