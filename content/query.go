package content

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Query derives filtered views over a Repository. Nothing is cached; every
// call re-reads the store.
type Query struct {
	repo *Repository
	now  func() time.Time
}

// NewQuery creates a Query that shares repo's clock.
func NewQuery(repo *Repository) *Query {
	return &Query{repo: repo, now: repo.now}
}

// Repository returns the underlying repository.
func (q *Query) Repository() *Repository { return q.repo }

func (q *Query) UpcomingEvents(ctx context.Context) ([]Record, error) {
	events, err := q.repo.ListAll(ctx, KindEvent)
	if err != nil {
		return nil, err
	}
	return FilterUpcoming(events, q.now()), nil
}

func (q *Query) PastEvents(ctx context.Context) ([]Record, error) {
	events, err := q.repo.ListAll(ctx, KindEvent)
	if err != nil {
		return nil, err
	}
	return FilterPast(events, q.now()), nil
}

func (q *Query) OverdueTasks(ctx context.Context) ([]Record, error) {
	tasks, err := q.repo.ListAll(ctx, KindTask)
	if err != nil {
		return nil, err
	}
	return FilterOverdue(tasks, q.now()), nil
}

func (q *Query) TasksNeedingCheckup(ctx context.Context) ([]Record, error) {
	tasks, err := q.repo.ListAll(ctx, KindTask)
	if err != nil {
		return nil, err
	}
	return FilterNeedsCheckup(tasks, q.now()), nil
}

func (q *Query) ActiveTasks(ctx context.Context) ([]Record, error) {
	tasks, err := q.repo.ListAll(ctx, KindTask)
	if err != nil {
		return nil, err
	}
	return filter(tasks, func(r Record) bool {
		return r.Task != nil && (r.Task.Status == StatusActive || r.Task.Status == StatusPlanning)
	}), nil
}

func (q *Query) CompletedTasks(ctx context.Context) ([]Record, error) {
	tasks, err := q.repo.ListAll(ctx, KindTask)
	if err != nil {
		return nil, err
	}
	return filter(tasks, func(r Record) bool {
		return r.Task != nil && r.Task.Status == StatusCompleted
	}), nil
}

func (q *Query) FeaturedCreative(ctx context.Context) ([]Record, error) {
	works, err := q.repo.ListAll(ctx, KindCreative)
	if err != nil {
		return nil, err
	}
	return filter(works, func(r Record) bool { return r.Featured }), nil
}

// ByCategory returns published records of kind whose category matches exactly.
func (q *Query) ByCategory(ctx context.Context, kind Kind, category string) ([]Record, error) {
	records, err := q.repo.ListAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	return filter(records, func(r Record) bool { return r.Category == category }), nil
}

// ByTag returns published records of kind carrying tag, ignoring case.
func (q *Query) ByTag(ctx context.Context, kind Kind, tag string) ([]Record, error) {
	records, err := q.repo.ListAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	return FilterByTag(records, tag), nil
}

// All merges the published records of every kind, newest first.
func (q *Query) All(ctx context.Context) ([]Record, error) {
	var all []Record
	for _, kind := range Kinds() {
		records, err := q.repo.ListAll(ctx, kind)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	SortByDate(all)
	return all, nil
}

// Tags returns the distinct lowercase tags used by published records of kind.
func (q *Query) Tags(ctx context.Context, kind Kind) ([]string, error) {
	records, err := q.repo.ListAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, r := range records {
		for _, t := range r.Tags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				set[t] = struct{}{}
			}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

// FilterUpcoming keeps events whose sort date is at or after now.
func FilterUpcoming(events []Record, now time.Time) []Record {
	return filter(events, func(r Record) bool {
		t, ok := r.SortTime()
		return ok && !t.Before(now)
	})
}

// FilterPast keeps events whose sort date is before now.
func FilterPast(events []Record, now time.Time) []Record {
	return filter(events, func(r Record) bool {
		t, ok := r.SortTime()
		return ok && t.Before(now)
	})
}

// FilterOverdue keeps unfinished tasks whose due date has passed.
func FilterOverdue(tasks []Record, now time.Time) []Record {
	return filter(tasks, func(r Record) bool {
		if r.Task == nil || r.Task.Status == StatusCompleted {
			return false
		}
		due, ok := ParseDate(r.Task.DueDate)
		return ok && due.Before(now)
	})
}

// FilterNeedsCheckup keeps unfinished tasks with a required checkup that is due.
func FilterNeedsCheckup(tasks []Record, now time.Time) []Record {
	return filter(tasks, func(r Record) bool {
		if r.Task == nil || r.Task.Status == StatusCompleted || !r.Task.Checkup.Required {
			return false
		}
		next, ok := ParseDate(r.Task.Checkup.NextDate)
		return ok && !next.After(now)
	})
}

// FilterByTag keeps records carrying tag, ignoring case.
func FilterByTag(records []Record, tag string) []Record {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return filter(records, func(r Record) bool {
		for _, t := range r.Tags {
			if strings.ToLower(strings.TrimSpace(t)) == tag {
				return true
			}
		}
		return false
	})
}

func filter(records []Record, keep func(Record) bool) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
