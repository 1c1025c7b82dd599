package enrich

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type SocialRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Style   string `json:"style,omitempty"`
}

func (r SocialRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, required("title is required")),
		validation.Field(&r.Content, required("content is required")),
	)
}

type SocialPosts struct {
	Twitter   string `json:"twitter"`
	LinkedIn  string `json:"linkedin"`
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
	Threads   string `json:"threads"`
}

type SocialResult struct {
	SocialPosts SocialPosts `json:"social_posts"`
	AIEnhanced  bool        `json:"ai_enhanced"`
}

var socialSchema = mustCompile("social", `{
	"type": "object",
	"required": ["twitter", "linkedin"],
	"properties": {
		"twitter": {"type": "string", "minLength": 1},
		"linkedin": {"type": "string", "minLength": 1},
		"instagram": {"type": "string"},
		"facebook": {"type": "string"},
		"threads": {"type": "string"}
	}
}`)

// Social drafts short promotional posts for each platform.
func (g *Gateway) Social(ctx context.Context, req SocialRequest) (SocialResult, error) {
	if err := req.Validate(); err != nil {
		return SocialResult{}, invalid(err)
	}
	raw, err := g.complete(ctx, "social", Prompt{
		System: "You write social media posts that drive readers to a blog. Reply with JSON only.",
		User: fmt.Sprintf(`Write posts promoting this blog post.

BLOG TITLE: %s
BLOG CONTENT: %s
STYLE: %s

Reply with a JSON object with these keys:
- twitter: at most 280 characters, with hashtags
- linkedin: professional and longer form
- instagram: visual, with emoji
- facebook: conversational and easy to share
- threads: casual, opening a discussion
`, req.Title, truncate(req.Content, 2000), orDefault(req.Style, "engaging")),
		Temperature: 0.7,
		MaxTokens:   800,
	})
	if err != nil && !degrade(err) {
		return SocialResult{}, err
	}
	var posts SocialPosts
	if err == nil && decodeReply(raw, '{', socialSchema, &posts) {
		return SocialResult{SocialPosts: posts, AIEnhanced: true}, nil
	}
	return SocialResult{SocialPosts: SocialPosts{
		Twitter:   fmt.Sprintf("📝 New blog post: %q - check it out! #blogging #content", req.Title),
		LinkedIn:  fmt.Sprintf("I just published a new article: %q. Would love to hear your thoughts!", req.Title),
		Instagram: fmt.Sprintf("📖 New blog post is live! %q ✨ Link in bio", req.Title),
		Facebook:  fmt.Sprintf("Just shared some thoughts on %q - what do you think?", req.Title),
		Threads:   fmt.Sprintf("Wrote about %q - curious about your experiences with this topic?", req.Title),
	}}, nil
}

type EventRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	EventType    string `json:"event_type,omitempty"`
	LocationType string `json:"location_type,omitempty"`
}

func (r EventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, required("title is required")),
		validation.Field(&r.Description, required("description is required")),
	)
}

type AgendaSuggestion struct {
	Topic    string `json:"topic"`
	Duration int    `json:"duration"`
	Speaker  string `json:"speaker,omitempty"`
}

type EventData struct {
	Summary           string             `json:"summary"`
	Agenda            []AgendaSuggestion `json:"agenda"`
	Requirements      []string           `json:"requirements"`
	PrepMaterials     []string           `json:"prep_materials"`
	Tags              []string           `json:"tags"`
	EstimatedDuration int                `json:"estimated_duration"`
	SuggestedCapacity int                `json:"suggested_capacity"`
	FollowUpActions   []string           `json:"follow_up_actions"`
}

type EventResult struct {
	EventData     EventData `json:"event_data"`
	AISuggestions bool      `json:"ai_suggestions"`
}

var eventSchema = mustCompile("event", `{
	"type": "object",
	"required": ["summary", "agenda"],
	"properties": {
		"summary": {"type": "string"},
		"agenda": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["topic"],
				"properties": {
					"topic": {"type": "string"},
					"duration": {"type": "integer"},
					"speaker": {"type": "string"}
				}
			}
		},
		"requirements": {"type": "array", "items": {"type": "string"}},
		"prep_materials": {"type": "array", "items": {"type": "string"}},
		"tags": {"type": "array", "items": {"type": "string"}},
		"estimated_duration": {"type": "integer"},
		"suggested_capacity": {"type": "integer"},
		"follow_up_actions": {"type": "array", "items": {"type": "string"}}
	}
}`)

// Event proposes an agenda, requirements and logistics for an event.
func (g *Gateway) Event(ctx context.Context, req EventRequest) (EventResult, error) {
	if err := req.Validate(); err != nil {
		return EventResult{}, invalid(err)
	}
	eventType := orDefault(req.EventType, "meeting")
	locationType := orDefault(req.LocationType, "virtual")

	raw, err := g.complete(ctx, "event", Prompt{
		System: "You are an event coordinator. Produce practical, actionable event plans. Reply with JSON only.",
		User: fmt.Sprintf(`Plan this event.

EVENT TITLE: %s
DESCRIPTION: %s
EVENT TYPE: %s
LOCATION TYPE: %s

Reply with a JSON object holding:
- summary: 2-3 engaging sentences
- agenda: objects with topic, duration (minutes, integer) and speaker
- requirements: what participants should bring
- prep_materials: useful resources
- tags: event tags
- estimated_duration: total minutes, integer
- suggested_capacity: recommended attendee limit, integer
- follow_up_actions: tasks after the event
`, req.Title, req.Description, eventType, locationType),
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil && !degrade(err) {
		return EventResult{}, err
	}
	var data EventData
	if err == nil && decodeReply(raw, '{', eventSchema, &data) {
		return EventResult{EventData: data, AISuggestions: true}, nil
	}

	capacity := 20
	if locationType == "virtual" {
		capacity = 50
	}
	return EventResult{EventData: EventData{
		Summary: req.Title + ": " + req.Description,
		Agenda: []AgendaSuggestion{
			{Topic: "Welcome & Introductions", Duration: 10, Speaker: "Organizer"},
			{Topic: "Main Discussion", Duration: 30, Speaker: "All"},
			{Topic: "Next Steps", Duration: 10, Speaker: "Organizer"},
		},
		Requirements:      []string{"Notebook", "Pen"},
		PrepMaterials:     []string{},
		Tags:              []string{eventType, locationType},
		EstimatedDuration: 60,
		SuggestedCapacity: capacity,
		FollowUpActions:   []string{"Send summary", "Schedule follow-up"},
	}}, nil
}

type CreativeRequest struct {
	Title        string `json:"title"`
	CreativeType string `json:"creative_type,omitempty"`
	Description  string `json:"description,omitempty"`
	MediaCount   int    `json:"media_count,omitempty"`
}

func (r CreativeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, required("title is required")),
		validation.Field(&r.MediaCount, validation.Min(0)),
	)
}

type StorySection struct {
	Title       string `json:"title"`
	Purpose     string `json:"purpose"`
	ContentType string `json:"content_type"`
}

type CreativeSuggestions struct {
	Summary                    string         `json:"summary"`
	StoryStructure             []StorySection `json:"story_structure"`
	InteractiveIdeas           []string       `json:"interactive_ideas"`
	CollaborationOpportunities []string       `json:"collaboration_opportunities"`
	ToolsRecommended           []string       `json:"tools_recommended"`
	EngagementHooks            []string       `json:"engagement_hooks"`
	Hashtags                   []string       `json:"hashtags"`
	CrossPromotion             []string       `json:"cross_promotion"`
	TechnicalNotes             []string       `json:"technical_notes"`
}

type CreativeResult struct {
	CreativeSuggestions CreativeSuggestions `json:"creative_suggestions"`
	AIEnhanced          bool                `json:"ai_enhanced"`
}

var creativeSchema = mustCompile("creative", `{
	"type": "object",
	"required": ["summary", "story_structure"],
	"properties": {
		"summary": {"type": "string"},
		"story_structure": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title"],
				"properties": {
					"title": {"type": "string"},
					"purpose": {"type": "string"},
					"content_type": {"type": "string"}
				}
			}
		},
		"interactive_ideas": {"type": "array", "items": {"type": "string"}},
		"collaboration_opportunities": {"type": "array", "items": {"type": "string"}},
		"tools_recommended": {"type": "array", "items": {"type": "string"}},
		"engagement_hooks": {"type": "array", "items": {"type": "string"}},
		"hashtags": {"type": "array", "items": {"type": "string"}},
		"cross_promotion": {"type": "array", "items": {"type": "string"}},
		"technical_notes": {"type": "array", "items": {"type": "string"}}
	}
}`)

// creativeTemplate is the fallback story layout for one creative type.
type creativeTemplate struct {
	structure   []StorySection
	interactive []string
	tools       []string
}

var creativeTemplates = map[string]creativeTemplate{
	"photo_story": {
		structure: []StorySection{
			{Title: "Opening Shot", Purpose: "Hook the viewer", ContentType: "hero_image"},
			{Title: "The Journey", Purpose: "Document the process", ContentType: "gallery"},
			{Title: "Behind the Scenes", Purpose: "Show your perspective", ContentType: "narrative"},
			{Title: "Final Result", Purpose: "Showcase the outcome", ContentType: "featured_image"},
		},
		interactive: []string{"Ask viewers to guess the location", "Photo scavenger hunt challenge"},
		tools:       []string{"Camera/Phone", "Photo editing app", "Lightroom"},
	},
	"video_showcase": {
		structure: []StorySection{
			{Title: "Intro Hook", Purpose: "Grab attention in first 3 seconds", ContentType: "video"},
			{Title: "Main Content", Purpose: "Deliver value", ContentType: "video"},
			{Title: "Call to Action", Purpose: "Engage audience", ContentType: "interactive"},
		},
		interactive: []string{"Ask for video responses", "Create a series", "Live Q&A follow-up"},
		tools:       []string{"Video editor", "Good microphone", "Stable lighting"},
	},
	"mixed_media": {
		structure: []StorySection{
			{Title: "Visual Introduction", Purpose: "Set the scene", ContentType: "image"},
			{Title: "Story Development", Purpose: "Build narrative", ContentType: "text"},
			{Title: "Interactive Element", Purpose: "Engage audience", ContentType: "poll"},
			{Title: "Rich Conclusion", Purpose: "Leave impact", ContentType: "mixed"},
		},
		interactive: []string{"Multi-format storytelling", "Choose your own adventure", "Community creation"},
		tools:       []string{"Various media tools", "Content planning app", "Social platforms"},
	},
}

// Creative suggests a story structure and promotion ideas for a creative work.
func (g *Gateway) Creative(ctx context.Context, req CreativeRequest) (CreativeResult, error) {
	if err := req.Validate(); err != nil {
		return CreativeResult{}, invalid(err)
	}
	creativeType := orDefault(req.CreativeType, "mixed_media")
	mediaCount := req.MediaCount
	if mediaCount == 0 {
		mediaCount = 1
	}

	raw, err := g.complete(ctx, "creative", Prompt{
		System: "You are a creative director skilled at multimedia storytelling. Reply with JSON only.",
		User: fmt.Sprintf(`Suggest a content structure for this creative project.

PROJECT TITLE: %s
CREATIVE TYPE: %s
DESCRIPTION: %s
MEDIA COUNT: %d

Reply with a JSON object holding:
- summary: a hook for readers
- story_structure: sections with title, purpose and content_type
- interactive_ideas, collaboration_opportunities, tools_recommended,
  engagement_hooks, hashtags, cross_promotion, technical_notes: string lists
`, req.Title, creativeType, req.Description, mediaCount),
		Temperature: 0.8,
		MaxTokens:   1200,
	})
	if err != nil && !degrade(err) {
		return CreativeResult{}, err
	}
	var s CreativeSuggestions
	if err == nil && decodeReply(raw, '{', creativeSchema, &s) {
		return CreativeResult{CreativeSuggestions: s, AIEnhanced: true}, nil
	}

	tpl, ok := creativeTemplates[creativeType]
	if !ok {
		tpl = creativeTemplates["mixed_media"]
	}
	return CreativeResult{CreativeSuggestions: CreativeSuggestions{
		Summary:                    fmt.Sprintf("%s: A %s exploration", req.Title, strings.Replace(creativeType, "_", " ", 1)),
		StoryStructure:             tpl.structure,
		InteractiveIdeas:           tpl.interactive,
		CollaborationOpportunities: []string{"Guest contributions", "Community challenges", "Cross-creator features"},
		ToolsRecommended:           tpl.tools,
		EngagementHooks:            []string{"What would you create?", "Share your version", "What's your favorite part?"},
		Hashtags:                   []string{"#" + creativeType, "#creative", "#content", "#storytelling"},
		CrossPromotion:             []string{"Behind-the-scenes content", "Process tutorials", "Community features"},
		TechnicalNotes:             []string{"Consider lighting", "Plan your shots", "Keep backups"},
	}}, nil
}
