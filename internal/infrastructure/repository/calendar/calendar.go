package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	calendardomain "github.com/PierreExeter/gmail-agent/internal/domain/calendar"
)

const calendarID = "primary"

type calendarRepo struct {
	srv *gcal.Service
}

var _ calendardomain.CalendarRepo = (*calendarRepo)(nil)

func NewCalendarRepo(ctx context.Context, credentialsPath, tokenPath string) (calendardomain.CalendarRepo, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	token, err := tokenFromFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load oauth token (run the auth flow first): %w", err)
	}

	client := config.Client(ctx, token)
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}

	return &calendarRepo{srv: srv}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// BusyIntervals lists timed events within the range as busy intervals.
// All-day entries are skipped; they do not block meeting slots.
func (r *calendarRepo) BusyIntervals(ctx context.Context, from, to time.Time) ([]calendardomain.Interval, error) {
	events, err := r.srv.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list events: %w", err)
	}

	var busy []calendardomain.Interval
	for _, ev := range events.Items {
		if ev.Start == nil || ev.End == nil || ev.Start.DateTime == "" || ev.End.DateTime == "" {
			continue // all-day event
		}
		start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, ev.End.DateTime)
		if err != nil {
			continue
		}
		busy = append(busy, calendardomain.Interval{Start: start, End: end})
	}

	return busy, nil
}

func (r *calendarRepo) CreateEvent(ctx context.Context, ev *calendardomain.NewEvent) (*calendardomain.Event, error) {
	if err := ev.Interval.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event interval: %w", err)
	}

	body := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &gcal.EventDateTime{DateTime: ev.Interval.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.Interval.End.Format(time.RFC3339)},
	}
	for _, email := range ev.Attendees {
		body.Attendees = append(body.Attendees, &gcal.EventAttendee{Email: email})
	}

	created, err := r.srv.Events.Insert(calendarID, body).SendNotifications(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create event: %w", err)
	}

	out := &calendardomain.Event{
		ID:       created.Id,
		Summary:  created.Summary,
		Location: created.Location,
		HTMLLink: created.HtmlLink,
	}
	if created.Start != nil && created.Start.DateTime != "" {
		out.Start, _ = time.Parse(time.RFC3339, created.Start.DateTime)
	}
	if created.End != nil && created.End.DateTime != "" {
		out.End, _ = time.Parse(time.RFC3339, created.End.DateTime)
	}
	for _, a := range created.Attendees {
		out.Attendees = append(out.Attendees, a.Email)
	}
	return out, nil
}
