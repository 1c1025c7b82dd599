package quill

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/eringen/quill/content"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// FilterRelated finds records that share at least one tag with current.
func FilterRelated(current content.Record, all []content.Record) []content.Record {
	tagSet := make(map[string]struct{})
	for _, t := range current.Tags {
		if tag := strings.ToLower(strings.TrimSpace(t)); tag != "" {
			tagSet[tag] = struct{}{}
		}
	}
	var related []content.Record
	for _, r := range all {
		if r.Slug == current.Slug {
			continue
		}
		for _, t := range r.Tags {
			if _, ok := tagSet[strings.ToLower(strings.TrimSpace(t))]; ok {
				related = append(related, r)
				break
			}
		}
	}
	return related
}

// RecordJsonLD returns a schema.org description of r: a BlogPosting for
// posts and tasks, an Event for events and a CreativeWork for creative
// pieces.
func RecordJsonLD(r content.Record, cfg SiteConfig) string {
	recordURL := BuildURL(cfg.URL, r.Kind.Dir(), r.Slug)
	description := r.MetaDescription
	if description == "" {
		description = r.Summary
	}
	data := map[string]any{
		"@context":    "https://schema.org",
		"name":        r.Title,
		"description": description,
		"url":         recordURL,
	}
	switch r.Kind {
	case content.KindEvent:
		data["@type"] = "Event"
		if r.Event != nil {
			if r.Event.EventDate != "" {
				data["startDate"] = r.Event.EventDate
			}
			switch r.Event.LocationType {
			case "virtual":
				data["eventAttendanceMode"] = "https://schema.org/OnlineEventAttendanceMode"
			case "hybrid":
				data["eventAttendanceMode"] = "https://schema.org/MixedEventAttendanceMode"
			default:
				data["eventAttendanceMode"] = "https://schema.org/OfflineEventAttendanceMode"
			}
			if r.Event.Location.Address != "" {
				data["location"] = map[string]string{"@type": "Place", "address": r.Event.Location.Address}
			}
		}
	case content.KindCreative:
		data["@type"] = "CreativeWork"
		data["dateCreated"] = r.Date
		if r.Creative != nil && r.Creative.HeroMedia != nil && r.Creative.HeroMedia.Image != "" {
			data["image"] = r.Creative.HeroMedia.Image
		}
	default:
		data["@type"] = "BlogPosting"
		data["headline"] = r.Title
		data["datePublished"] = r.Date
		data["mainEntityOfPage"] = map[string]string{
			"@type": "WebPage",
			"@id":   recordURL,
		}
	}
	if r.FeaturedImage != "" {
		data["image"] = r.FeaturedImage
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	if len(r.Tags) > 0 {
		data["keywords"] = strings.Join(r.Tags, ", ")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
