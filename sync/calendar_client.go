// ABOUTME: Calendar event service interface and its Google Calendar API implementation
// ABOUTME: Handles paginated listing, sync tokens, and 410 token invalidation
package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const maxResults = 250 // Google Calendar API max per page

// ErrSyncTokenInvalid signals that the service rejected the stored sync
// token as stale (HTTP 410). The caller recovers by falling back to a
// full sync within the same pass.
var ErrSyncTokenInvalid = errors.New("sync token invalidated by calendar service")

// ListQuery parameterizes one page request against a calendar. SyncToken
// and the time window are mutually exclusive: the API rejects combining
// them.
type ListQuery struct {
	TimeMin   time.Time
	TimeMax   time.Time
	SyncToken string
	PageToken string
	Search    string
}

// EventPage is one page of listed events. NextSyncToken is only set on
// the final page and is the authoritative cursor for the next pass.
type EventPage struct {
	Items         []*calendar.Event
	NextPageToken string
	NextSyncToken string
}

// EventService is the engine's view of the remote calendar service.
type EventService interface {
	// ListPage fetches one page of events from calendarID.
	ListPage(ctx context.Context, calendarID string, q ListQuery) (*EventPage, error)

	// BatchMutate submits all requests as a single batched call and
	// returns one result per part the service answered. A shorter
	// result slice than the request slice means partial failure.
	BatchMutate(ctx context.Context, calendarID string, reqs []MutationRequest) ([]MutationResult, error)
}

// GoogleEventService implements EventService over the Calendar API.
type GoogleEventService struct {
	service    *calendar.Service
	httpClient *http.Client
	batchURL   string
	basePath   string
}

// NewEventService creates a Google Calendar event service from an OAuth
// token.
func NewEventService(ctx context.Context, token *oauth2.Token) (*GoogleEventService, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	client := NewOAuthConfig().Client(ctx, token)
	return NewEventServiceWithClient(ctx, client)
}

// NewEventServiceWithClient creates the service from an authenticated
// HTTP client. Optionally accepts an endpoint URL for testing with mock
// servers.
func NewEventServiceWithClient(ctx context.Context, httpClient *http.Client, endpoint ...string) (*GoogleEventService, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}

	batchURL := "https://www.googleapis.com/batch/calendar/v3"
	basePath := "/calendar/v3"
	if len(endpoint) > 0 && endpoint[0] != "" {
		opts = append(opts, option.WithEndpoint(endpoint[0]))
		batchURL = endpoint[0] + "/batch/calendar/v3"
	}

	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &GoogleEventService{
		service:    srv,
		httpClient: httpClient,
		batchURL:   batchURL,
		basePath:   basePath,
	}, nil
}

// ListPage fetches one page of events. A 410 from the service is
// translated into ErrSyncTokenInvalid.
func (s *GoogleEventService) ListPage(ctx context.Context, calendarID string, q ListQuery) (*EventPage, error) {
	call := s.service.Events.List(calendarID).
		Context(ctx).
		MaxResults(maxResults).
		SingleEvents(true).
		MaxAttendees(1).
		EventTypes("default")

	if q.SyncToken != "" {
		call = call.SyncToken(q.SyncToken)
	} else {
		if !q.TimeMin.IsZero() {
			call = call.TimeMin(q.TimeMin.Format(time.RFC3339))
		}
		if !q.TimeMax.IsZero() {
			call = call.TimeMax(q.TimeMax.Format(time.RFC3339))
		}
	}
	if q.Search != "" {
		call = call.Q(q.Search)
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	events, err := call.Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusGone {
			return nil, fmt.Errorf("listing %s: %w", calendarID, ErrSyncTokenInvalid)
		}
		return nil, fmt.Errorf("failed to fetch calendar events: %w", err)
	}

	return &EventPage{
		Items:         events.Items,
		NextPageToken: events.NextPageToken,
		NextSyncToken: events.NextSyncToken,
	}, nil
}
