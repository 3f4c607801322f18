package manager

import (
	"fmt"
	"time"

	"github.com/harrisonrobin/tasktrack/pkg/model"
)

const recentWindow = 7 * 24 * time.Hour

// Statistics summarizes the task store.
type Statistics struct {
	Total             int                    `json:"total"`
	ByStatus          map[model.Status]int   `json:"by_status"`
	ByPriority        map[model.Priority]int `json:"by_priority"`
	Overdue           int                    `json:"overdue"`
	CompletedLastWeek int                    `json:"completed_last_week"`
}

func (m *Manager) GetStatistics() (Statistics, error) {
	tasks, err := m.store.All()
	if err != nil {
		return Statistics{}, fmt.Errorf("list tasks: %w", err)
	}
	return computeStatistics(tasks, m.now()), nil
}

func computeStatistics(tasks []*model.Task, now time.Time) Statistics {
	stats := Statistics{
		Total:      len(tasks),
		ByStatus:   make(map[model.Status]int, len(model.Statuses)),
		ByPriority: make(map[model.Priority]int, len(model.Priorities)),
	}
	for _, s := range model.Statuses {
		stats.ByStatus[s] = 0
	}
	for _, p := range model.Priorities {
		stats.ByPriority[p] = 0
	}

	for _, t := range tasks {
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
		if t.IsOverdue(now) {
			stats.Overdue++
		}
		if t.CompletedWithin(now, recentWindow) {
			stats.CompletedLastWeek++
		}
	}
	return stats
}
