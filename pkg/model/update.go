package model

import (
	"slices"
	"time"
)

// TaskUpdate describes a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Priority    *Priority
	Status      *Status
	DueDate     *time.Time
	Tags        []string
	SetTags     bool
}

// IsEmpty reports whether the update would change nothing.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil &&
		u.Status == nil && u.DueDate == nil && !u.SetTags
}

// Apply merges the set fields of u into t.
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.DueDate != nil {
		d := *u.DueDate
		t.DueDate = &d
	}
	if u.SetTags {
		t.Tags = nil
		for _, tag := range u.Tags {
			t.AddTag(tag)
		}
	}
}

// WithPriority returns an update that only changes the priority.
func WithPriority(p Priority) TaskUpdate {
	return TaskUpdate{Priority: &p}
}

// WithStatus returns an update that only changes the status.
func WithStatus(s Status) TaskUpdate {
	return TaskUpdate{Status: &s}
}

// WithDueDate returns an update that only changes the due date.
func WithDueDate(d time.Time) TaskUpdate {
	return TaskUpdate{DueDate: &d}
}

// WithTags returns an update that replaces the tag set.
func WithTags(tags ...string) TaskUpdate {
	return TaskUpdate{Tags: slices.Clone(tags), SetTags: true}
}
