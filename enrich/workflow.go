package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/eringen/quill/content"
)

// PostDigest is the condensed view of a post the multi-post workflows
// reason over.
type PostDigest struct {
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Category  string   `json:"category,omitempty"`
	Tags      []string `json:"tags"`
	Date      string   `json:"date,omitempty"`
	Excerpt   string   `json:"excerpt"`
	WordCount int      `json:"word_count"`
}

const digestExcerpt = 500

// Digest condenses a record.
func Digest(r content.Record) PostDigest {
	return PostDigest{
		Slug:      r.Slug,
		Title:     r.Title,
		Category:  r.Category,
		Tags:      r.Tags,
		Date:      r.Date,
		Excerpt:   truncate(strings.TrimSpace(r.Body), digestExcerpt),
		WordCount: wordCount(r.Body),
	}
}

type OptimizeRequest struct {
	Title              string `json:"title"`
	Content            string `json:"content"`
	EnhanceReadability bool   `json:"enhance_readability,omitempty"`
}

func (r OptimizeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, required("title is required")),
		validation.Field(&r.Content, minRunes(50, "content must be at least 50 characters long")),
	)
}

type PostAnalysis struct {
	StructureScore     float64  `json:"structure_score"`
	EngagementScore    float64  `json:"engagement_score"`
	StructureIssues    []string `json:"structure_issues"`
	EngagementTips     []string `json:"engagement_tips"`
	AccessibilityNotes []string `json:"accessibility_notes"`
}

type SEOSuggestions struct {
	SEOScore               float64  `json:"seo_score"`
	MetaDescription        string   `json:"meta_description"`
	TitleOptions           []string `json:"title_options"`
	Keywords               []string `json:"keywords"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
}

type OptimizeResult struct {
	WorkflowSteps     []string       `json:"workflow_steps"`
	Analysis          PostAnalysis   `json:"analysis"`
	SEOSuggestions    SEOSuggestions `json:"seo_suggestions"`
	ImprovedContent   string         `json:"improved_content,omitempty"`
	OptimizationScore int            `json:"optimization_score"`
	Recommendations   []string       `json:"recommendations"`
	AIEnhanced        bool           `json:"ai_enhanced"`
	Timestamp         time.Time      `json:"timestamp"`
}

var postAnalysisSchema = mustCompile("post-analysis", `{
	"type": "object",
	"required": ["structure_score", "engagement_score"],
	"properties": {
		"structure_score": {"type": "number", "minimum": 0, "maximum": 100},
		"engagement_score": {"type": "number", "minimum": 0, "maximum": 100},
		"structure_issues": {"type": "array", "items": {"type": "string"}},
		"engagement_tips": {"type": "array", "items": {"type": "string"}},
		"accessibility_notes": {"type": "array", "items": {"type": "string"}}
	}
}`)

var seoSchema = mustCompile("seo", `{
	"type": "object",
	"required": ["seo_score", "meta_description"],
	"properties": {
		"seo_score": {"type": "number", "minimum": 0, "maximum": 100},
		"meta_description": {"type": "string", "minLength": 1},
		"title_options": {"type": "array", "items": {"type": "string"}},
		"keywords": {"type": "array", "items": {"type": "string"}},
		"improvement_suggestions": {"type": "array", "items": {"type": "string"}}
	}
}`)

// OptimizePost runs a structure pass and an SEO pass over one post, and a
// readability rewrite when asked. Each pass falls back to local heuristics
// when the service fails; a failed rewrite is skipped.
func (g *Gateway) OptimizePost(ctx context.Context, req OptimizeRequest) (OptimizeResult, error) {
	if err := req.Validate(); err != nil {
		return OptimizeResult{}, invalid(err)
	}
	res := OptimizeResult{Timestamp: g.now().UTC(), AIEnhanced: true}

	raw, err := g.complete(ctx, "optimize-analysis", Prompt{
		System: "You review blog posts for structure and reader engagement. Reply with JSON only.",
		User: fmt.Sprintf(`Review this blog post.

TITLE: %s
CONTENT:
%s

Reply with a JSON object:
- structure_score: 0-100
- engagement_score: 0-100
- structure_issues: list of concrete problems with headings, paragraphs and flow
- engagement_tips: list of ways to hold the reader
- accessibility_notes: list of accessibility fixes
`, req.Title, truncate(req.Content, 4000)),
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil && !degrade(err) {
		return OptimizeResult{}, err
	}
	if err != nil || !decodeReply(raw, '{', postAnalysisSchema, &res.Analysis) {
		res.Analysis = analyzeLocally(req.Content)
		res.AIEnhanced = false
	}
	res.WorkflowSteps = append(res.WorkflowSteps, "analyzed structure and engagement")

	raw, err = g.complete(ctx, "optimize-seo", Prompt{
		System: "You are an SEO editor for a personal blog. Reply with JSON only.",
		User: fmt.Sprintf(`Suggest SEO improvements for this blog post.

TITLE: %s
CONTENT:
%s

Reply with a JSON object:
- seo_score: 0-100
- meta_description: 150-160 characters
- title_options: up to 3 alternative titles
- keywords: up to 8 keywords
- improvement_suggestions: list of concrete changes
`, req.Title, truncate(req.Content, 3000)),
		Temperature: 0.3,
		MaxTokens:   600,
	})
	if err != nil && !degrade(err) {
		return OptimizeResult{}, err
	}
	if err != nil || !decodeReply(raw, '{', seoSchema, &res.SEOSuggestions) {
		res.SEOSuggestions = seoLocally(req.Title, req.Content)
		res.AIEnhanced = false
	}
	res.SEOSuggestions.MetaDescription = truncate(strings.TrimSpace(res.SEOSuggestions.MetaDescription), 160)
	res.WorkflowSteps = append(res.WorkflowSteps, "generated SEO suggestions")

	if req.EnhanceReadability {
		improved, err := g.Improve(ctx, ImproveRequest{Content: req.Content, Mode: ModeSimplify})
		switch {
		case err == nil:
			res.ImprovedContent = improved.ImprovedContent
			res.WorkflowSteps = append(res.WorkflowSteps, "rewrote for readability")
		case degrade(err):
			res.WorkflowSteps = append(res.WorkflowSteps, "readability rewrite skipped")
		default:
			return OptimizeResult{}, err
		}
	}

	res.OptimizationScore = optimizationScore(res.Analysis, res.SEOSuggestions)
	for _, issue := range res.Analysis.StructureIssues {
		res.Recommendations = append(res.Recommendations, "Structure: "+issue)
	}
	for _, s := range res.SEOSuggestions.ImprovementSuggestions {
		res.Recommendations = append(res.Recommendations, "SEO: "+s)
	}
	return res, nil
}

func optimizationScore(a PostAnalysis, s SEOSuggestions) int {
	v := a.StructureScore*0.3 + s.SEOScore*0.4 + a.EngagementScore*0.3
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

// analyzeLocally scores headings, paragraph length and reader prompts.
func analyzeLocally(body string) PostAnalysis {
	a := PostAnalysis{StructureScore: 60, EngagementScore: 60}
	headings := 0
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			headings++
		}
	}
	if headings == 0 {
		a.StructureScore -= 20
		a.StructureIssues = append(a.StructureIssues, "add subheadings to break the post into sections")
	} else {
		a.StructureScore += float64(min(headings, 4) * 10)
	}
	for _, para := range strings.Split(body, "\n\n") {
		if wordCount(para) > 150 {
			a.StructureScore -= 10
			a.StructureIssues = append(a.StructureIssues, "split paragraphs longer than 150 words")
			break
		}
	}
	if !strings.Contains(body, "?") {
		a.EngagementScore -= 10
		a.EngagementTips = append(a.EngagementTips, "ask the reader a question")
	}
	if wordCount(body) < 300 {
		a.EngagementScore -= 10
		a.EngagementTips = append(a.EngagementTips, "expand the post with an example or a story")
	}
	if strings.Contains(body, "![](") {
		a.AccessibilityNotes = append(a.AccessibilityNotes, "give every image alt text")
	}
	a.StructureScore = math.Max(0, math.Min(100, a.StructureScore))
	return a
}

func seoLocally(title, body string) SEOSuggestions {
	s := SEOSuggestions{SEOScore: 50, MetaDescription: firstParagraph(body)}
	if n := utf8.RuneCountInString(title); n < 30 || n > 60 {
		s.SEOScore -= 10
		s.ImprovementSuggestions = append(s.ImprovementSuggestions, "keep the title between 30 and 60 characters")
	} else {
		s.SEOScore += 10
	}
	if wordCount(body) < 300 {
		s.SEOScore -= 10
		s.ImprovementSuggestions = append(s.ImprovementSuggestions, "expand the post past 300 words")
	}
	if !strings.Contains(body, "](") {
		s.ImprovementSuggestions = append(s.ImprovementSuggestions, "link to related posts")
	}
	return s
}

// firstParagraph returns the first non-heading paragraph on one line.
func firstParagraph(body string) string {
	for _, para := range strings.Split(body, "\n\n") {
		p := strings.TrimSpace(para)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		return strings.Join(strings.Fields(p), " ")
	}
	return ""
}

type SeriesRequest struct {
	Topic          string `json:"topic"`
	TargetAudience string `json:"target_audience,omitempty"`
	PostCount      int    `json:"post_count,omitempty"`
	Style          string `json:"style,omitempty"`
}

func (r SeriesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Topic, required("topic is required")),
		validation.Field(&r.PostCount,
			validation.Min(1).Error("post_count must be between 1 and 12"),
			validation.Max(12).Error("post_count must be between 1 and 12")),
	)
}

type SeriesPost struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	KeyTopics   []string `json:"key_topics"`
}

type SeriesPlan struct {
	Overview         string       `json:"overview"`
	Posts            []SeriesPost `json:"posts"`
	CallsToAction    []string     `json:"calls_to_action"`
	LongTailKeywords []string     `json:"long_tail_keywords"`
}

type SEOStrategy struct {
	PrimaryKeyword        string   `json:"primary_keyword"`
	LongTailOpportunities []string `json:"long_tail_opportunities"`
	InternalLinking       string   `json:"internal_linking"`
	ClusterApproach       string   `json:"cluster_approach"`
}

type CalendarEntry struct {
	Week        int    `json:"week"`
	PublishDate string `json:"publish_date"`
	Title       string `json:"title"`
	Status      string `json:"status"`
}

type SeriesResult struct {
	SeriesPlan          SeriesPlan      `json:"series_plan"`
	EstimatedCompletion string          `json:"estimated_completion"`
	SEOStrategy         SEOStrategy     `json:"seo_strategy"`
	ContentCalendar     []CalendarEntry `json:"content_calendar"`
	AIEnhanced          bool            `json:"ai_enhanced"`
}

var seriesSchema = mustCompile("series", `{
	"type": "object",
	"required": ["posts"],
	"properties": {
		"overview": {"type": "string"},
		"posts": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["title"],
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"key_topics": {"type": "array", "items": {"type": "string"}}
				}
			}
		},
		"calls_to_action": {"type": "array", "items": {"type": "string"}},
		"long_tail_keywords": {"type": "array", "items": {"type": "string"}}
	}
}`)

const (
	defaultSeriesCount = 5
	seriesSpacing      = 10 * 24 * time.Hour
)

// Series plans a run of related posts with a publishing calendar.
func (g *Gateway) Series(ctx context.Context, req SeriesRequest) (SeriesResult, error) {
	if err := req.Validate(); err != nil {
		return SeriesResult{}, invalid(err)
	}
	req.Topic = strings.TrimSpace(req.Topic)
	req.TargetAudience = orDefault(strings.TrimSpace(req.TargetAudience), "developers")
	req.Style = orDefault(strings.TrimSpace(req.Style), "tutorial")
	if req.PostCount == 0 {
		req.PostCount = defaultSeriesCount
	}

	raw, err := g.complete(ctx, "series", Prompt{
		System: "You plan blog post series. Reply with JSON only.",
		User: fmt.Sprintf(`Plan a %d-part %s series.

TOPIC: %s
AUDIENCE: %s

Reply with a JSON object:
- overview: one paragraph
- posts: %d objects with title, description and key_topics, in reading order
- calls_to_action: list
- long_tail_keywords: list
`, req.PostCount, req.Style, req.Topic, req.TargetAudience, req.PostCount),
		Temperature: 0.7,
		MaxTokens:   1500,
	})
	if err != nil && !degrade(err) {
		return SeriesResult{}, err
	}
	res := SeriesResult{AIEnhanced: true}
	if err != nil || !decodeReply(raw, '{', seriesSchema, &res.SeriesPlan) {
		res.SeriesPlan = seriesLocally(req)
		res.AIEnhanced = false
	}
	if len(res.SeriesPlan.Posts) > req.PostCount {
		res.SeriesPlan.Posts = res.SeriesPlan.Posts[:req.PostCount]
	}

	weeks := int(math.Ceil(float64(req.PostCount) * 1.5))
	res.EstimatedCompletion = fmt.Sprintf("%d weeks (%d posts at ~1.5 weeks each)", weeks, req.PostCount)
	res.SEOStrategy = SEOStrategy{
		PrimaryKeyword:        strings.Join(strings.Fields(strings.ToLower(req.Topic)), "-"),
		LongTailOpportunities: res.SeriesPlan.LongTailKeywords,
		InternalLinking:       "Sequential with hub page",
		ClusterApproach:       "Topic authority building",
	}
	start := g.now()
	for i := 0; i < req.PostCount; i++ {
		title := fmt.Sprintf("Part %d", i+1)
		if i < len(res.SeriesPlan.Posts) {
			title = res.SeriesPlan.Posts[i].Title
		}
		res.ContentCalendar = append(res.ContentCalendar, CalendarEntry{
			Week:        i + 1,
			PublishDate: start.Add(time.Duration(i) * seriesSpacing).Format("2006-01-02"),
			Title:       title,
			Status:      "planned",
		})
	}
	return res, nil
}

func seriesLocally(req SeriesRequest) SeriesPlan {
	n := req.PostCount
	plan := SeriesPlan{
		Overview: fmt.Sprintf("A %d-part %s series on %s for %s.", n, req.Style, req.Topic, req.TargetAudience),
		CallsToAction: []string{
			"Subscribe to follow the series",
			"Share what you want covered next",
		},
	}
	for i := 0; i < n; i++ {
		var title string
		switch {
		case i == 0:
			title = "Getting started with " + req.Topic
		case i == n-1:
			title = "Putting " + req.Topic + " into practice"
		default:
			title = fmt.Sprintf("%s, part %d", req.Topic, i+1)
		}
		plan.Posts = append(plan.Posts, SeriesPost{
			Title:       title,
			Description: fmt.Sprintf("Part %d of %d for %s.", i+1, n, req.TargetAudience),
		})
	}
	topic := strings.ToLower(req.Topic)
	plan.LongTailKeywords = []string{
		topic + " " + strings.ToLower(req.Style),
		topic + " for " + strings.ToLower(req.TargetAudience),
		"how to get started with " + topic,
	}
	return plan
}

type LinkSuggestion struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

type ContentCluster struct {
	Name  string   `json:"name"`
	Posts []string `json:"posts"`
}

type CrossReferenceResult struct {
	TotalPosts           int              `json:"total_posts"`
	ContentClusters      []ContentCluster `json:"content_clusters"`
	LinkingSuggestions   []LinkSuggestion `json:"linking_suggestions"`
	ContentGaps          []string         `json:"content_gaps"`
	LinkingOpportunities int              `json:"linking_opportunities"`
	SEOScore             int              `json:"seo_score"`
	AIEnhanced           bool             `json:"ai_enhanced"`
}

var crossReferenceSchema = mustCompile("cross-reference", `{
	"type": "object",
	"properties": {
		"content_clusters": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "posts"],
				"properties": {
					"name": {"type": "string"},
					"posts": {"type": "array", "items": {"type": "string"}}
				}
			}
		},
		"linking_suggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["from", "to"],
				"properties": {
					"from": {"type": "string"},
					"to": {"type": "string"},
					"reason": {"type": "string"}
				}
			}
		},
		"content_gaps": {"type": "array", "items": {"type": "string"}}
	}
}`)

const maxLinkSuggestions = 20

// CrossReference groups posts into clusters and proposes internal links.
// Suggestions only ever name slugs from posts.
func (g *Gateway) CrossReference(ctx context.Context, posts []PostDigest) (CrossReferenceResult, error) {
	res := CrossReferenceResult{TotalPosts: len(posts)}
	if len(posts) == 0 {
		return res, nil
	}
	payload, err := json.Marshal(posts)
	if err != nil {
		return CrossReferenceResult{}, err
	}
	raw, err := g.complete(ctx, "cross-reference", Prompt{
		System: "You map relationships between blog posts for internal linking. Reply with JSON only.",
		User: fmt.Sprintf(`These are the posts on a blog, as JSON:
%s

Reply with a JSON object:
- content_clusters: objects with name and posts (list of slugs)
- linking_suggestions: objects with from (slug), to (slug) and reason
- content_gaps: topics the blog should cover next
`, truncate(string(payload), 12000)),
		Temperature: 0.3,
		MaxTokens:   1500,
	})
	if err != nil && !degrade(err) {
		return CrossReferenceResult{}, err
	}
	var reply CrossReferenceResult
	if err == nil && decodeReply(raw, '{', crossReferenceSchema, &reply) {
		res.ContentClusters, res.LinkingSuggestions = keepKnown(posts, reply.ContentClusters, reply.LinkingSuggestions)
		res.ContentGaps = reply.ContentGaps
		res.AIEnhanced = true
	} else {
		res.ContentClusters, res.LinkingSuggestions = tagClusters(posts)
	}
	res.LinkingOpportunities = len(res.LinkingSuggestions)
	res.SEOScore = min(100, len(res.LinkingSuggestions)*10+len(res.ContentClusters)*15)
	return res, nil
}

func keepKnown(posts []PostDigest, clusters []ContentCluster, links []LinkSuggestion) ([]ContentCluster, []LinkSuggestion) {
	known := make(map[string]bool, len(posts))
	for _, p := range posts {
		known[p.Slug] = true
	}
	var outClusters []ContentCluster
	for _, c := range clusters {
		var members []string
		for _, s := range c.Posts {
			if known[s] {
				members = append(members, s)
			}
		}
		if len(members) > 0 {
			outClusters = append(outClusters, ContentCluster{Name: c.Name, Posts: members})
		}
	}
	var outLinks []LinkSuggestion
	for _, l := range links {
		if known[l.From] && known[l.To] && l.From != l.To && len(outLinks) < maxLinkSuggestions {
			outLinks = append(outLinks, l)
		}
	}
	return outClusters, outLinks
}

// tagClusters groups posts sharing a tag and links every pair within a
// group. Larger groups come first.
func tagClusters(posts []PostDigest) ([]ContentCluster, []LinkSuggestion) {
	byTag := make(map[string][]string)
	for _, p := range posts {
		for _, t := range normalizeTags(p.Tags, len(p.Tags)) {
			byTag[t] = append(byTag[t], p.Slug)
		}
	}
	var clusters []ContentCluster
	for tag, slugs := range byTag {
		if len(slugs) >= 2 {
			clusters = append(clusters, ContentCluster{Name: tag, Posts: slugs})
		}
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i].Posts) != len(clusters[j].Posts) {
			return len(clusters[i].Posts) > len(clusters[j].Posts)
		}
		return clusters[i].Name < clusters[j].Name
	})

	var links []LinkSuggestion
	seen := make(map[[2]string]bool)
	for _, c := range clusters {
		for _, from := range c.Posts {
			for _, to := range c.Posts {
				key := [2]string{from, to}
				if from == to || seen[key] || len(links) == maxLinkSuggestions {
					continue
				}
				seen[key] = true
				links = append(links, LinkSuggestion{From: from, To: to, Reason: fmt.Sprintf("both tagged %q", c.Name)})
			}
		}
	}
	return clusters, links
}

type AuditData struct {
	TotalPosts     int            `json:"total_posts"`
	Categories     []string       `json:"categories"`
	Tags           []string       `json:"tags"`
	AvgWordCount   int            `json:"avg_word_count"`
	WordCountRange [2]int         `json:"word_count_range"`
	PostsPerMonth  map[string]int `json:"posts_per_month"`
}

type AuditAnalysis struct {
	StrategyAssessment  string   `json:"strategy_assessment"`
	PublishingFrequency string   `json:"publishing_frequency"`
	TopicDiversity      string   `json:"topic_diversity"`
	GrowthOpportunities []string `json:"growth_opportunities"`
	Recommendations     []string `json:"recommendations"`
}

type AuditResult struct {
	AuditData           AuditData     `json:"audit_data"`
	PerformanceAnalysis AuditAnalysis `json:"performance_analysis"`
	Recommendations     []string      `json:"recommendations"`
	OptimizationScore   int           `json:"optimization_score"`
	AIEnhanced          bool          `json:"ai_enhanced"`
}

var auditSchema = mustCompile("audit", `{
	"type": "object",
	"required": ["strategy_assessment", "recommendations"],
	"properties": {
		"strategy_assessment": {"type": "string"},
		"publishing_frequency": {"type": "string"},
		"topic_diversity": {"type": "string"},
		"growth_opportunities": {"type": "array", "items": {"type": "string"}},
		"recommendations": {"type": "array", "items": {"type": "string"}}
	}
}`)

// Audit summarizes the whole post collection and scores its volume,
// diversity and depth.
func (g *Gateway) Audit(ctx context.Context, posts []PostDigest) (AuditResult, error) {
	data := auditData(posts)
	res := AuditResult{AuditData: data, OptimizationScore: auditScore(data)}
	if data.TotalPosts == 0 {
		res.PerformanceAnalysis = AuditAnalysis{StrategyAssessment: "No posts to audit yet."}
		return res, nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return AuditResult{}, err
	}
	raw, err := g.complete(ctx, "audit", Prompt{
		System: "You audit the content strategy of a personal blog. Reply with JSON only.",
		User: fmt.Sprintf(`Audit this blog from its statistics:
%s

Reply with a JSON object:
- strategy_assessment: one paragraph
- publishing_frequency: one sentence
- topic_diversity: one sentence
- growth_opportunities: list
- recommendations: list of concrete next steps
`, payload),
		Temperature: 0.4,
		MaxTokens:   1000,
	})
	if err != nil && !degrade(err) {
		return AuditResult{}, err
	}
	if err == nil && decodeReply(raw, '{', auditSchema, &res.PerformanceAnalysis) {
		res.AIEnhanced = true
	} else {
		res.PerformanceAnalysis = auditLocally(data, posts)
	}
	res.Recommendations = res.PerformanceAnalysis.Recommendations
	return res, nil
}

func auditData(posts []PostDigest) AuditData {
	d := AuditData{TotalPosts: len(posts), PostsPerMonth: map[string]int{}}
	if len(posts) == 0 {
		return d
	}
	cats := make(map[string]bool)
	tags := make(map[string]bool)
	total := 0
	d.WordCountRange = [2]int{posts[0].WordCount, posts[0].WordCount}
	for _, p := range posts {
		if p.Category != "" {
			cats[p.Category] = true
		}
		for _, t := range normalizeTags(p.Tags, len(p.Tags)) {
			tags[t] = true
		}
		total += p.WordCount
		d.WordCountRange[0] = min(d.WordCountRange[0], p.WordCount)
		d.WordCountRange[1] = max(d.WordCountRange[1], p.WordCount)
		if t, ok := content.ParseDate(p.Date); ok {
			d.PostsPerMonth[t.Format("2006-01")]++
		}
	}
	d.Categories = sortedKeys(cats)
	d.Tags = sortedKeys(tags)
	d.AvgWordCount = int(math.Round(float64(total) / float64(len(posts))))
	return d
}

// auditScore weighs volume against 50 posts, topic diversity, and depth
// against an 800 word average.
func auditScore(d AuditData) int {
	volume := math.Min(100, float64(d.TotalPosts)/50*100)
	diversity := math.Min(100, float64(len(d.Categories)*10+len(d.Tags)*2))
	quality := 90.0
	if d.AvgWordCount <= 800 {
		quality = float64(d.AvgWordCount) / 800 * 90
	}
	return int(math.Round(volume*0.2 + diversity*0.3 + quality*0.5))
}

func auditLocally(d AuditData, posts []PostDigest) AuditAnalysis {
	a := AuditAnalysis{
		StrategyAssessment: fmt.Sprintf("%d posts across %d categories and %d tags, averaging %d words.",
			d.TotalPosts, len(d.Categories), len(d.Tags), d.AvgWordCount),
		PublishingFrequency: fmt.Sprintf("%d dated posts over %d months.", sumCounts(d.PostsPerMonth), len(d.PostsPerMonth)),
		TopicDiversity:      "broad",
	}
	if len(d.Categories) < 3 {
		a.TopicDiversity = "narrow"
		a.Recommendations = append(a.Recommendations, "Write in more categories")
	}
	if d.AvgWordCount < 800 {
		a.Recommendations = append(a.Recommendations, "Aim for 800+ words in in-depth posts")
	}
	if d.TotalPosts < 50 {
		a.Recommendations = append(a.Recommendations, "Publish more often to build volume")
	}
	if tag := topTag(posts); tag != "" {
		a.GrowthOpportunities = append(a.GrowthOpportunities, fmt.Sprintf("Build a series around %q", tag))
	}
	return a
}

func topTag(posts []PostDigest) string {
	counts := make(map[string]int)
	for _, p := range posts {
		for _, t := range normalizeTags(p.Tags, len(p.Tags)) {
			counts[t]++
		}
	}
	best := ""
	for _, t := range sortedKeys(counts) {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best
}

func sumCounts(m map[string]int) int {
	n := 0
	for _, c := range m {
		n += c
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
