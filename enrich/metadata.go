package enrich

import (
	"context"
	"fmt"
	"math"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Categories offered to the model when classifying a post.
var Categories = []string{"Personal", "Tech", "Travel", "Life", "Thoughts", "Projects"}

const defaultCategory = "Personal"

type MetadataRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r MetadataRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, required("title is required")),
		validation.Field(&r.Content, required("content is required"), minRunes(50, "content must be at least 50 characters long")),
	)
}

type MetadataResult struct {
	Summary         string   `json:"summary"`
	Tags            []string `json:"tags"`
	Category        string   `json:"category"`
	MetaDescription string   `json:"meta_description"`
	AIEnhanced      bool     `json:"ai_enhanced"`
}

var metadataSchema = mustCompile("metadata", `{
	"type": "object",
	"properties": {
		"summary": {"type": "string"},
		"tags": {"type": "array", "items": {"type": "string"}},
		"category": {"type": "string"},
		"meta_description": {"type": "string"}
	}
}`)

// Metadata suggests a summary, tags, category and SEO description.
func (g *Gateway) Metadata(ctx context.Context, req MetadataRequest) (MetadataResult, error) {
	if err := req.Validate(); err != nil {
		return MetadataResult{}, invalid(err)
	}
	raw, err := g.complete(ctx, "metadata", Prompt{
		System: "Extract concise metadata only. Return valid JSON.",
		User: fmt.Sprintf(`Extract metadata for this blog post.

Categories to choose from: %s

Reply with a compact JSON object holding:
- summary: a short description, at most 240 characters
- tags: 3 to 6 single-word lowercase tags
- category: the best match from the list above
- meta_description: an SEO description, at most 160 characters

TITLE: %s
CONTENT:
%s
`, strings.Join(Categories, ", "), req.Title, truncate(req.Content, 5000)),
		Temperature: 0.3,
		MaxTokens:   300,
	})
	if err != nil {
		if !degrade(err) {
			return MetadataResult{}, err
		}
		return metadataFallback(req), nil
	}

	var res MetadataResult
	if !decodeReply(raw, '{', metadataSchema, &res) {
		return metadataFallback(req), nil
	}
	res.Summary = truncate(strings.TrimSpace(res.Summary), 240)
	if res.Category == "" {
		res.Category = defaultCategory
	}
	if res.MetaDescription == "" {
		res.MetaDescription = res.Summary
	}
	res.MetaDescription = truncate(res.MetaDescription, 160)
	res.Tags = normalizeTags(res.Tags, 6)
	res.AIEnhanced = true
	return res, nil
}

func metadataFallback(req MetadataRequest) MetadataResult {
	summary := truncate(req.Title+": "+truncate(req.Content, 200)+"...", 240)
	return MetadataResult{
		Summary:         summary,
		Tags:            []string{},
		Category:        defaultCategory,
		MetaDescription: truncate(summary, 160),
	}
}

func normalizeTags(tags []string, limit int) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

type QuestionsRequest struct {
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
}

func (r QuestionsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, minRunes(100, "content must be at least 100 characters long to generate meaningful questions")),
	)
}

type QuestionsResult struct {
	Questions  []string `json:"questions"`
	AIEnhanced bool     `json:"ai_enhanced"`
}

var questionsSchema = mustCompile("questions", `{
	"type": "array",
	"items": {"type": "string", "minLength": 1},
	"minItems": 2,
	"maxItems": 2
}`)

var (
	unparsedQuestions = []string{
		"What's your take on this topic?",
		"Have you had a similar experience? Tell us about it!",
	}
	unavailableQuestions = []string{
		"What are your thoughts on this?",
		"How does this relate to your own experience?",
	}
)

// Questions generates two open-ended discussion questions.
func (g *Gateway) Questions(ctx context.Context, req QuestionsRequest) (QuestionsResult, error) {
	if err := req.Validate(); err != nil {
		return QuestionsResult{}, invalid(err)
	}
	var title string
	if strings.TrimSpace(req.Title) != "" {
		title = "TITLE: " + req.Title + "\n\n"
	}
	raw, err := g.complete(ctx, "questions", Prompt{
		System: "You write discussion prompts that get readers talking. Reply with a JSON array of exactly 2 questions.",
		User: fmt.Sprintf(`Write exactly 2 open-ended questions about this blog post that invite readers to reflect or share their own experience. Avoid yes/no questions and keep them tied to the post's themes.

%sCONTENT:
%s

Reply with a JSON array of 2 strings, e.g. ["First question?", "Second question?"]`, title, truncate(req.Content, 4000)),
		Temperature: 0.8,
		MaxTokens:   300,
	})
	if err != nil {
		if !degrade(err) {
			return QuestionsResult{}, err
		}
		return QuestionsResult{Questions: append([]string(nil), unavailableQuestions...)}, nil
	}

	var questions []string
	if decodeReply(raw, '[', questionsSchema, &questions) {
		return QuestionsResult{Questions: questions, AIEnhanced: true}, nil
	}
	if scanned := scanQuestions(raw); len(scanned) == 2 {
		return QuestionsResult{Questions: scanned, AIEnhanced: true}, nil
	}
	return QuestionsResult{Questions: append([]string(nil), unparsedQuestions...)}, nil
}

// scanQuestions picks the first two lines that read like questions, with
// list markers and quotes stripped.
func scanQuestions(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(line, "?") {
			continue
		}
		q := strings.TrimLeft(strings.TrimSpace(line), "\"-*0123456789.) \t")
		q = strings.TrimSpace(strings.TrimRight(q, "\", \t"))
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == 2 {
			break
		}
	}
	return out
}

type AnalyzeRequest struct {
	Content        string `json:"content"`
	TargetAudience string `json:"target_audience,omitempty"`
	Tone           string `json:"tone,omitempty"`
	Length         string `json:"length,omitempty"`
}

func (r AnalyzeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, minRunes(100, "content must be at least 100 characters long")),
	)
}

type Analysis struct {
	ReadabilityScore      float64  `json:"readability_score"`
	Suggestions           []string `json:"suggestions"`
	ToneAnalysis          string   `json:"tone_analysis"`
	StructureImprovements []string `json:"structure_improvements"`
	EngagementTips        []string `json:"engagement_tips"`
	SEOSuggestions        []string `json:"seo_suggestions"`
}

type AnalyzeResult struct {
	Analysis    Analysis `json:"analysis"`
	WordCount   int      `json:"word_count"`
	ReadingTime int      `json:"reading_time"`
	AIEnhanced  bool     `json:"ai_enhanced"`
}

var analysisSchema = mustCompile("analysis", `{
	"type": "object",
	"required": ["readability_score", "suggestions"],
	"properties": {
		"readability_score": {"type": "number", "minimum": 1, "maximum": 10},
		"suggestions": {"type": "array", "items": {"type": "string"}},
		"tone_analysis": {"type": "string"},
		"structure_improvements": {"type": "array", "items": {"type": "string"}},
		"engagement_tips": {"type": "array", "items": {"type": "string"}},
		"seo_suggestions": {"type": "array", "items": {"type": "string"}}
	}
}`)

// Analyze scores readability and suggests improvements.
func (g *Gateway) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error) {
	if err := req.Validate(); err != nil {
		return AnalyzeResult{}, invalid(err)
	}
	audience := orDefault(req.TargetAudience, "general")
	tone := orDefault(req.Tone, "professional")
	length := orDefault(req.Length, "medium")

	words := wordCount(req.Content)
	res := AnalyzeResult{
		WordCount:   words,
		ReadingTime: int(math.Ceil(float64(words) / 200)),
	}

	raw, err := g.complete(ctx, "analyze", Prompt{
		System: "You are a content strategist. Give specific, actionable suggestions for improving blog posts. Reply with JSON only.",
		User: fmt.Sprintf(`Review this blog post and suggest concrete improvements.

TARGET AUDIENCE: %s
DESIRED TONE: %s
DESIRED LENGTH: %s

CONTENT:
%s

Reply with a JSON object holding:
- readability_score: 1 to 10
- suggestions: specific improvements
- tone_analysis: how the current tone compares to the desired one
- structure_improvements: heading and paragraph suggestions
- engagement_tips: ways to hold the reader
- seo_suggestions: keyword and meta improvements
`, audience, tone, length, req.Content),
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil && !degrade(err) {
		return AnalyzeResult{}, err
	}
	if err == nil && decodeReply(raw, '{', analysisSchema, &res.Analysis) {
		res.AIEnhanced = true
		return res, nil
	}
	res.Analysis = Analysis{
		ReadabilityScore:      7,
		Suggestions:           []string{"Consider adding more specific examples", "Break up long paragraphs"},
		ToneAnalysis:          fmt.Sprintf("Current tone appears %s-friendly", tone),
		StructureImprovements: []string{"Add subheadings for better readability"},
		EngagementTips:        []string{"Ask questions to engage readers", "Add relevant examples"},
		SEOSuggestions:        []string{"Include target keywords naturally", "Optimize meta description"},
	}
	return res, nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
