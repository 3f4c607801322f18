// Package calendar mirrors tasks with due dates as all-day Google Calendar events.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/tasktrack/pkg/auth"
)

// TaskIDProperty is the private extended property that links an event to its task.
const TaskIDProperty = "tasktrack_id"

// EventService is the subset of the Calendar API that sync uses.
type EventService interface {
	Insert(ctx context.Context, event *gcal.Event) (*gcal.Event, error)
	Patch(ctx context.Context, eventID string, patch *gcal.Event) (*gcal.Event, error)
	// Delete treats an already deleted event as success.
	Delete(ctx context.Context, eventID string) error
	Get(ctx context.Context, eventID string) (*gcal.Event, error)
	// FindByTaskID returns nil without error when no event carries taskID.
	FindByTaskID(ctx context.Context, taskID string) (*gcal.Event, error)
}

// CalendarClient is a Google Calendar API client bound to one calendar.
type CalendarClient struct {
	srv        *gcal.Service
	calendarID string
}

var _ EventService = (*CalendarClient)(nil)

// NewClient authenticates through flow and resolves calendarName to its ID.
func NewClient(ctx context.Context, flow *auth.Flow, calendarName string) (*CalendarClient, error) {
	srv, err := flow.CalendarService(ctx)
	if err != nil {
		return nil, err
	}

	calendarList, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendar list: %w", err)
	}

	var calendarID string
	for _, item := range calendarList.Items {
		if item.Summary == calendarName {
			calendarID = item.Id
			break
		}
	}

	if calendarID == "" {
		return nil, fmt.Errorf("calendar '%s' not found", calendarName)
	}

	return NewCalendarClient(srv, calendarID), nil
}

func NewCalendarClient(srv *gcal.Service, calendarID string) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID}
}

func (c *CalendarClient) Insert(ctx context.Context, event *gcal.Event) (*gcal.Event, error) {
	return c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
}

// Patch performs a partial update on an event.
func (c *CalendarClient) Patch(ctx context.Context, eventID string, patch *gcal.Event) (*gcal.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

func (c *CalendarClient) Delete(ctx context.Context, eventID string) error {
	err := c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if isGone(err) {
		return nil
	}
	return err
}

func (c *CalendarClient) Get(ctx context.Context, eventID string) (*gcal.Event, error) {
	return c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
}

// FindByTaskID searches the private extended properties for taskID.
func (c *CalendarClient) FindByTaskID(ctx context.Context, taskID string) (*gcal.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", TaskIDProperty, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}
