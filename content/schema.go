package content

import (
	"strings"
	"time"
)

// field maps one front-matter key onto a Record. When the key is absent or
// blank, def is used instead; a nil def leaves the zero value.
type field struct {
	key    string
	def    any
	assign func(r *Record, v value)
}

// readTime is substituted for def when the default is the time of reading.
type readTime struct{}

var commonFields = []field{
	{key: "title", def: "Untitled", assign: func(r *Record, v value) { r.Title = v.String() }},
	{key: "date", def: readTime{}, assign: func(r *Record, v value) { r.Date = v.String() }},
	{key: "summary", assign: func(r *Record, v value) { r.Summary = v.String() }},
	{key: "tags", assign: func(r *Record, v value) { r.Tags = v.Strings() }},
	{key: "category", assign: func(r *Record, v value) { r.Category = v.String() }},
	{key: "featured", assign: func(r *Record, v value) { r.Featured = v.Bool(false) }},
	{key: "featured_image", assign: func(r *Record, v value) { r.FeaturedImage = v.String() }},
	{key: "meta_description", assign: func(r *Record, v value) { r.MetaDescription = v.String() }},
	// Only a boolean false hides a document; strings such as "false" do not.
	{key: "published", assign: func(r *Record, v value) {
		b, ok := v.raw.(bool)
		r.Published = !ok || b
	}},
}

var eventFields = []field{
	{key: "event_type", def: "meetup", assign: func(r *Record, v value) { r.Event.EventType = v.String() }},
	{key: "event_date", assign: func(r *Record, v value) { r.Event.EventDate = v.String() }},
	{key: "duration", assign: func(r *Record, v value) { r.Event.DurationMinutes, _ = v.Int() }},
	{key: "location_type", def: "in_person", assign: func(r *Record, v value) { r.Event.LocationType = v.String() }},
	{key: "location", assign: func(r *Record, v value) {
		if !v.empty() {
			_ = v.decode(&r.Event.Location)
		}
	}},
	{key: "rsvp_required", assign: func(r *Record, v value) { r.Event.RSVPRequired = v.Bool(false) }},
	{key: "max_capacity", assign: func(r *Record, v value) { r.Event.MaxCapacity, _ = v.Int() }},
	{key: "agenda", assign: func(r *Record, v value) { r.Event.Agenda = decodeList[AgendaItem](v) }},
	{key: "requirements", assign: func(r *Record, v value) { r.Event.Requirements = v.Strings() }},
}

var creativeFields = []field{
	{key: "creative_type", def: "photo_story", assign: func(r *Record, v value) { r.Creative.CreativeType = v.String() }},
	{key: "hero_media", assign: func(r *Record, v value) {
		if v.empty() {
			return
		}
		var h HeroMedia
		if s, ok := v.raw.(string); ok {
			h.Image = s
		} else if err := v.decode(&h); err != nil {
			return
		}
		r.Creative.HeroMedia = &h
	}},
	{key: "gallery", assign: func(r *Record, v value) { r.Creative.Gallery = decodeList[GalleryItem](v) }},
	{key: "videos", assign: func(r *Record, v value) { r.Creative.Videos = decodeList[Video](v) }},
	{key: "collaborators", assign: func(r *Record, v value) { r.Creative.Collaborators = decodeList[Collaborator](v) }},
	{key: "creation", assign: func(r *Record, v value) {
		if v.empty() {
			return
		}
		var d CreationDetail
		if err := v.decode(&d); err == nil {
			r.Creative.CreationDetails = &d
		}
	}},
}

var taskFields = []field{
	{key: "priority", def: "medium", assign: func(r *Record, v value) { r.Task.Priority = strings.ToLower(v.String()) }},
	{key: "due_date", assign: func(r *Record, v value) { r.Task.DueDate = v.String() }},
	{key: "status", def: StatusPlanning, assign: func(r *Record, v value) { r.Task.Status = strings.ToLower(v.String()) }},
	{key: "completion_percentage", assign: func(r *Record, v value) {
		if n, ok := v.Int(); ok {
			n = ClampPercent(n)
			r.Task.CompletionPercentage = &n
		}
	}},
	{key: "tasks", assign: func(r *Record, v value) { r.Task.Tasks = decodeList[TaskItem](v) }},
	{key: "checkup", assign: func(r *Record, v value) {
		if !v.empty() {
			_ = v.decode(&r.Task.Checkup)
		}
	}},
	{key: "checkup_history", assign: func(r *Record, v value) { r.Task.CheckupHistory = decodeList[CheckupEntry](v) }},
	{key: "dependencies", assign: func(r *Record, v value) { r.Task.Dependencies = decodeList[Dependency](v) }},
	{key: "project", assign: func(r *Record, v value) { r.Task.Project = v.String() }},
	{key: "visibility", def: "public", assign: func(r *Record, v value) { r.Task.Visibility = v.String() }},
	{key: "resources", assign: func(r *Record, v value) { r.Task.Resources = decodeList[Resource](v) }},
	{key: "time_tracking", assign: func(r *Record, v value) {
		if v.empty() {
			return
		}
		var tt TimeTracking
		if err := v.decode(&tt); err == nil {
			r.Task.TimeTracking = &tt
		}
	}},
}

var kindFields = map[Kind][]field{
	KindEvent:    eventFields,
	KindCreative: creativeFields,
	KindTask:     taskFields,
}

// ClampPercent bounds n to [0, 100].
func ClampPercent(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return n
}

// Map builds a Record of the given kind from decoded front matter. Keys the
// schema does not know are kept in Extra.
func Map(kind Kind, slug string, fields map[string]any, body string, now time.Time) Record {
	r := Record{Slug: slug, Kind: kind, Body: body}
	switch kind {
	case KindEvent:
		r.Event = &EventDetails{}
	case KindCreative:
		r.Creative = &CreativeDetails{}
	case KindTask:
		r.Task = &TaskDetails{}
	}

	known := make(map[string]bool)
	apply := func(table []field) {
		for _, f := range table {
			known[f.key] = true
			v := value{fields[f.key]}
			if v.empty() && f.def != nil {
				if _, ok := f.def.(readTime); ok {
					v = value{now.UTC().Format(time.RFC3339)}
				} else {
					v = value{f.def}
				}
			}
			f.assign(&r, v)
		}
	}
	apply(commonFields)
	apply(kindFields[kind])

	// Tasks without an explicit percentage report the share of checked items.
	if r.Task != nil && r.Task.CompletionPercentage == nil && len(r.Task.Tasks) > 0 {
		n := r.Task.CompletedItems() * 100 / len(r.Task.Tasks)
		r.Task.CompletionPercentage = &n
	}

	for k, v := range fields {
		if known[k] {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[k] = v
	}
	return r
}
