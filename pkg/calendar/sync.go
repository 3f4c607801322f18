package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/tasktrack/pkg/logging"
	"github.com/harrisonrobin/tasktrack/pkg/model"
)

// SyncReport counts what one Sync did.
type SyncReport struct {
	Created   int
	Updated   int
	Deleted   int
	Unchanged int
}

func (r SyncReport) String() string {
	return fmt.Sprintf("%d created, %d updated, %d deleted, %d unchanged",
		r.Created, r.Updated, r.Deleted, r.Unchanged)
}

// Syncer mirrors tasks onto a calendar through an EventService.
type Syncer struct {
	events EventService
	index  *EventIndex
	logger *log.Logger
	now    func() time.Time
}

func NewSyncer(events EventService, index *EventIndex, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Syncer{events: events, index: index, logger: logger, now: time.Now}
}

// Sync upserts an event for every task with a due date and deletes the
// events of indexed tasks that are gone or lost their due date. Failures on
// single tasks do not stop the run; they are joined into the returned error.
func (s *Syncer) Sync(ctx context.Context, tasks []*model.Task) (SyncReport, error) {
	var report SyncReport
	var errs []error
	now := s.now()
	live := make(map[string]bool, len(tasks))

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if task.DueDate == nil {
			continue
		}
		live[task.ID] = true

		res, err := s.upsert(ctx, task, now)
		if err != nil {
			s.logger.Warn("could not sync task", "id", task.ID, "err", err)
			errs = append(errs, fmt.Errorf("sync task %s: %w", task.ID, err))
			continue
		}
		switch res {
		case created:
			report.Created++
		case updated:
			report.Updated++
		default:
			report.Unchanged++
		}
	}

	if ctx.Err() == nil {
		for _, taskID := range s.index.TaskIDs() {
			if live[taskID] {
				continue
			}
			eventID := s.index.Get(taskID)
			if err := s.events.Delete(ctx, eventID); err != nil {
				errs = append(errs, fmt.Errorf("delete event for task %s: %w", taskID, err))
				continue
			}
			s.index.Remove(taskID)
			report.Deleted++
			s.logger.Debug("event deleted", "task", taskID, "event", eventID)
		}
	}

	if err := s.index.Save(); err != nil {
		errs = append(errs, fmt.Errorf("save event index: %w", err))
	}
	s.logger.Info("calendar sync finished", "report", report.String())
	return report, errors.Join(errs...)
}

type outcome int

const (
	unchanged outcome = iota
	created
	updated
)

func (s *Syncer) upsert(ctx context.Context, task *model.Task, now time.Time) (outcome, error) {
	target, err := ConvertTask(task, now)
	if err != nil {
		return unchanged, err
	}

	existing, err := s.find(ctx, task.ID)
	if err != nil {
		return unchanged, fmt.Errorf("error searching for event: %w", err)
	}

	if existing == nil {
		ev, err := s.events.Insert(ctx, target)
		if err != nil {
			return unchanged, err
		}
		s.index.Set(task.ID, ev.Id)
		s.logger.Debug("event created", "task", task.ID, "event", ev.Id)
		return created, nil
	}

	s.index.Set(task.ID, existing.Id)
	patch := EventNeedsUpdate(existing, target)
	if patch == nil {
		return unchanged, nil
	}
	if _, err := s.events.Patch(ctx, existing.Id, patch); err != nil {
		return unchanged, err
	}
	s.logger.Debug("event patched", "task", task.ID, "event", existing.Id)
	return updated, nil
}

// find tries the local index first and falls back to the extended property search.
func (s *Syncer) find(ctx context.Context, taskID string) (*gcal.Event, error) {
	if eventID := s.index.Get(taskID); eventID != "" {
		ev, err := s.events.Get(ctx, eventID)
		if err == nil && ev != nil && ev.Status != "cancelled" {
			return ev, nil
		}
		s.logger.Debug("indexed event unavailable, searching", "task", taskID, "event", eventID, "err", err)
	}
	return s.events.FindByTaskID(ctx, taskID)
}
