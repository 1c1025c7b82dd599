// Package content loads Markdown/MDX documents from a directory-per-kind
// store and normalizes them into Records.
package content

import (
	"encoding/json"
	"time"
)

// Record is the normalized form of a content document of any kind.
type Record struct {
	Slug            string         `json:"slug"`
	Kind            Kind           `json:"kind"`
	Title           string         `json:"title"`
	Date            string         `json:"date"`
	Summary         string         `json:"summary"`
	Tags            []string       `json:"tags"`
	Category        string         `json:"category,omitempty"`
	Featured        bool           `json:"featured"`
	FeaturedImage   string         `json:"featured_image,omitempty"`
	MetaDescription string         `json:"meta_description,omitempty"`
	Published       bool           `json:"published"`
	Body            string         `json:"body,omitempty"`
	Path            string         `json:"path,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`

	Event    *EventDetails    `json:"event,omitempty"`
	Creative *CreativeDetails `json:"creative,omitempty"`
	Task     *TaskDetails     `json:"task,omitempty"`
}

// Link returns the site-relative URL of the record.
func (r Record) Link() string {
	return "/" + r.Kind.Dir() + "/" + r.Slug
}

// SortTime is the instant a record is ordered by: the event date for events
// that have one, the document date otherwise.
func (r Record) SortTime() (time.Time, bool) {
	if r.Event != nil && r.Event.EventDate != "" {
		if t, ok := ParseDate(r.Event.EventDate); ok {
			return t, true
		}
	}
	return ParseDate(r.Date)
}

// EventDetails holds the event-only attribute block.
type EventDetails struct {
	EventType       string       `json:"event_type,omitempty"`
	EventDate       string       `json:"event_date,omitempty"`
	DurationMinutes int          `json:"duration,omitempty"`
	LocationType    string       `json:"location_type,omitempty"`
	Location        Location     `json:"location"`
	RSVPRequired    bool         `json:"rsvp_required"`
	MaxCapacity     int          `json:"max_capacity,omitempty"`
	Agenda          []AgendaItem `json:"agenda,omitempty"`
	Requirements    []string     `json:"requirements,omitempty"`
}

type Location struct {
	Address      string `json:"address,omitempty"`
	VirtualLink  string `json:"virtual_link,omitempty"`
	AccessCode   string `json:"access_code,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// UnmarshalJSON accepts either a location object or a bare address string.
func (l *Location) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Location{Address: s}
		return nil
	}
	type plain Location
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = Location(p)
	return nil
}

type AgendaItem struct {
	Topic    string `json:"topic"`
	Duration int    `json:"duration,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
}

// CreativeDetails holds the creative-work attribute block.
type CreativeDetails struct {
	CreativeType    string          `json:"creative_type,omitempty"`
	HeroMedia       *HeroMedia      `json:"hero_media,omitempty"`
	Gallery         []GalleryItem   `json:"gallery,omitempty"`
	Videos          []Video         `json:"videos,omitempty"`
	Collaborators   []Collaborator  `json:"collaborators,omitempty"`
	CreationDetails *CreationDetail `json:"creation,omitempty"`
}

type HeroMedia struct {
	Image   string `json:"image,omitempty"`
	Video   string `json:"video,omitempty"`
	AltText string `json:"alt_text,omitempty"`
}

type GalleryItem struct {
	Image   string `json:"image"`
	Caption string `json:"caption,omitempty"`
	Credit  string `json:"credit,omitempty"`
}

type Video struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type Collaborator struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

type CreationDetail struct {
	Difficulty string   `json:"difficulty,omitempty"`
	TimeSpent  string   `json:"time_spent,omitempty"`
	Budget     string   `json:"budget,omitempty"`
	Tools      []string `json:"tools,omitempty"`
}

// Task statuses.
const (
	StatusPlanning  = "planning"
	StatusActive    = "active"
	StatusOnHold    = "on_hold"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// TaskDetails holds the task attribute block.
type TaskDetails struct {
	Priority             string         `json:"priority"`
	DueDate              string         `json:"due_date,omitempty"`
	Status               string         `json:"status"`
	CompletionPercentage *int           `json:"completion_percentage,omitempty"`
	Tasks                []TaskItem     `json:"tasks,omitempty"`
	Checkup              Checkup        `json:"checkup"`
	CheckupHistory       []CheckupEntry `json:"checkup_history,omitempty"`
	Dependencies         []Dependency   `json:"dependencies,omitempty"`
	Project              string         `json:"project,omitempty"`
	Visibility           string         `json:"visibility"`
	Resources            []Resource     `json:"resources,omitempty"`
	TimeTracking         *TimeTracking  `json:"time_tracking,omitempty"`
}

// CompletedItems counts checked-off items in the task list.
func (t TaskDetails) CompletedItems() int {
	n := 0
	for _, item := range t.Tasks {
		if item.Completed {
			n++
		}
	}
	return n
}

type TaskItem struct {
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Notes       string     `json:"notes,omitempty"`
	Subtasks    []TaskItem `json:"subtasks,omitempty"`
}

// UnmarshalJSON accepts either an item object or a bare description string.
func (t *TaskItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TaskItem{Description: s}
		return nil
	}
	type plain TaskItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = TaskItem(p)
	return nil
}

type Checkup struct {
	Required bool   `json:"required"`
	NextDate string `json:"next_date,omitempty"`
	LastDate string `json:"last_date,omitempty"`
}

type CheckupEntry struct {
	Date                string `json:"date"`
	Progress            string `json:"progress,omitempty"`
	CompletionAtCheckup *int   `json:"completion_at_checkup,omitempty"`
	Accomplishments     string `json:"accomplishments,omitempty"`
	Challenges          string `json:"challenges,omitempty"`
	NextSteps           string `json:"next_steps,omitempty"`
	Mood                string `json:"mood,omitempty"`
	Notes               string `json:"notes,omitempty"`
}

type Dependency struct {
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
}

// UnmarshalJSON accepts either a dependency object or a bare title string.
func (d *Dependency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = Dependency{Title: s}
		return nil
	}
	type plain Dependency
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Dependency(p)
	return nil
}

type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Type  string `json:"type,omitempty"`
}

type TimeTracking struct {
	EstimatedTotal string        `json:"estimated_total,omitempty"`
	ActualTotal    string        `json:"actual_total,omitempty"`
	Sessions       []TimeSession `json:"sessions,omitempty"`
}

type TimeSession struct {
	Date     string `json:"date"`
	Duration string `json:"duration,omitempty"`
	Notes    string `json:"notes,omitempty"`
}
