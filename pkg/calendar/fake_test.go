package calendar

import (
	"context"
	"errors"
	"fmt"

	gcal "google.golang.org/api/calendar/v3"
)

// fakeEvents is an in-memory EventService.
type fakeEvents struct {
	events  map[string]*gcal.Event
	nextID  int
	calls   []string
	failFor map[string]error // keyed by task ID
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: map[string]*gcal.Event{}, failFor: map[string]error{}}
}

func taskIDOf(ev *gcal.Event) string {
	if ev.ExtendedProperties == nil {
		return ""
	}
	return ev.ExtendedProperties.Private[TaskIDProperty]
}

func (f *fakeEvents) Insert(_ context.Context, ev *gcal.Event) (*gcal.Event, error) {
	if err := f.failFor[taskIDOf(ev)]; err != nil {
		return nil, err
	}
	f.nextID++
	cp := *ev
	cp.Id = fmt.Sprintf("ev%d", f.nextID)
	f.events[cp.Id] = &cp
	f.calls = append(f.calls, "insert "+cp.Id)
	return &cp, nil
}

func (f *fakeEvents) Patch(_ context.Context, id string, patch *gcal.Event) (*gcal.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, errors.New("no such event")
	}
	if patch.Summary != "" {
		ev.Summary = patch.Summary
	}
	if patch.Description != "" {
		ev.Description = patch.Description
	}
	if patch.ColorId != "" {
		ev.ColorId = patch.ColorId
	}
	if patch.Start != nil {
		ev.Start, ev.End = patch.Start, patch.End
	}
	f.calls = append(f.calls, "patch "+id)
	return ev, nil
}

func (f *fakeEvents) Delete(_ context.Context, id string) error {
	delete(f.events, id)
	f.calls = append(f.calls, "delete "+id)
	return nil
}

func (f *fakeEvents) Get(_ context.Context, id string) (*gcal.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, errors.New("404")
	}
	return ev, nil
}

func (f *fakeEvents) FindByTaskID(_ context.Context, taskID string) (*gcal.Event, error) {
	for _, ev := range f.events {
		if taskIDOf(ev) == taskID {
			return ev, nil
		}
	}
	return nil, nil
}
