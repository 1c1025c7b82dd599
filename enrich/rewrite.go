package enrich

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/eringen/quill/content"
	"github.com/eringen/quill/frontmatter"
)

// Improve modes.
const (
	ModeImprove   = "improve"
	ModeSimplify  = "simplify"
	ModeExpand    = "expand"
	ModeSummarize = "summarize"
)

var improveInstructions = map[string]string{
	ModeImprove: `- Fix grammar and spelling
- Smooth the flow and readability
- Make it more engaging
- Keep the original meaning and tone`,
	ModeSimplify: `- Use shorter sentences and plainer words
- Remove jargon or explain it briefly
- Keep every point the author makes`,
	ModeExpand: `- Develop each point with an example or detail
- Add transitions where ideas jump
- Do not invent facts the author did not imply`,
	ModeSummarize: `- Condense to the essential points
- Keep the author's voice
- Aim for about a third of the original length`,
}

type ImproveRequest struct {
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty"`
}

func (r ImproveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, minRunes(50, "content must be at least 50 characters long")),
		validation.Field(&r.Mode, validation.In(ModeImprove, ModeSimplify, ModeExpand, ModeSummarize).
			Error("mode must be one of improve, simplify, expand, summarize")),
	)
}

type ImproveResult struct {
	ImprovedContent string `json:"improved_content"`
	OriginalLength  int    `json:"original_length"`
	NewLength       int    `json:"new_length"`
	Mode            string `json:"mode"`
}

// Improve rewrites content for grammar and flow. It has no fallback: a
// service failure is returned, and an empty reply yields the original text.
func (g *Gateway) Improve(ctx context.Context, req ImproveRequest) (ImproveResult, error) {
	if err := req.Validate(); err != nil {
		return ImproveResult{}, invalid(err)
	}
	mode := orDefault(req.Mode, ModeImprove)
	raw, err := g.complete(ctx, "improve", Prompt{
		System: "You are a careful blog editor. Improve the writing while preserving the author's voice and intent.",
		User: fmt.Sprintf(`Edit this blog post:
%s
- Use proper Markdown formatting

Reply with the edited content only:

%s`, improveInstructions[mode], req.Content),
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return ImproveResult{}, err
	}
	improved := strings.TrimSpace(raw)
	if improved == "" {
		improved = req.Content
	}
	return ImproveResult{
		ImprovedContent: improved,
		OriginalLength:  utf8.RuneCountInString(req.Content),
		NewLength:       utf8.RuneCountInString(improved),
		Mode:            mode,
	}, nil
}

// Embellish styles.
var embellishStyles = map[string]string{
	"engaging":       "Subtly lift engagement while keeping the natural tone",
	"vivid":          "Add a few descriptive touches without crowding the text",
	"conversational": "Make it gently more conversational and relatable",
	"professional":   "Refine the language while keeping it accessible",
	"creative":       "Add tasteful creative touches while keeping it clear",
}

const defaultStyle = "engaging"

type EmbellishRequest struct {
	Content string `json:"content"`
	Style   string `json:"style,omitempty"`
}

func (r EmbellishRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, minRunes(50, "content must be at least 50 characters long")),
	)
}

type EmbellishResult struct {
	EmbellishedContent string `json:"embellished_content"`
	OriginalWordCount  int    `json:"original_word_count"`
	NewWordCount       int    `json:"new_word_count"`
	EnhancementRatio   string `json:"enhancement_ratio"`
	StyleApplied       string `json:"style_applied"`
}

// Embellish applies a light stylistic rewrite that stays close to the
// original and grows it by at most a fifth.
func (g *Gateway) Embellish(ctx context.Context, req EmbellishRequest) (EmbellishResult, error) {
	if err := req.Validate(); err != nil {
		return EmbellishResult{}, invalid(err)
	}
	style := strings.ToLower(strings.TrimSpace(req.Style))
	goal, ok := embellishStyles[style]
	if !ok {
		style = defaultStyle
		goal = embellishStyles[style]
	}

	maxTokens := utf8.RuneCountInString(req.Content) * 2
	maxTokens = min(3000, max(800, maxTokens))

	raw, err := g.complete(ctx, "embellish", Prompt{
		System: "You enhance writing with restraint, keeping the author's voice intact.",
		User: fmt.Sprintf(`Lightly enhance this blog content.

STYLE GOAL: %s

GUIDELINES:
- Make subtle improvements; enhance, do not transform
- Keep about 70%% of the original wording
- Add description sparingly and only where it helps
- Keep the structure, meaning and any Markdown formatting
- Grow the text by 10-20%% at most

ORIGINAL CONTENT:
%s

Reply with the enhanced content only:`, goal, req.Content),
		Temperature: 0.5,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return EmbellishResult{}, err
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		out = req.Content
	}

	before := wordCount(req.Content)
	after := wordCount(out)
	return EmbellishResult{
		EmbellishedContent: out,
		OriginalWordCount:  before,
		NewWordCount:       after,
		EnhancementRatio:   ratio(before, after),
		StyleApplied:       style,
	}, nil
}

// ratio formats the relative change in word count, e.g. "+12.5%".
func ratio(before, after int) string {
	if before == 0 {
		return "+0.0%"
	}
	pct := float64(after-before) / float64(before) * 100
	if pct < 0 {
		return fmt.Sprintf("%.1f%%", pct)
	}
	return fmt.Sprintf("+%.1f%%", pct)
}

type MDXRequest struct {
	Title             string          `json:"title"`
	Content           string          `json:"content"`
	Category          string          `json:"category,omitempty"`
	Tags              content.TagList `json:"tags,omitempty"`
	Summary           string          `json:"summary,omitempty"`
	SuggestComponents bool            `json:"suggest_components,omitempty"`
}

func (r MDXRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, required("title is required")),
		validation.Field(&r.Content, required("content is required")),
	)
}

type MDXResult struct {
	MDXContent  string `json:"mdx_content"`
	GeneratedBy string `json:"generated_by"`
	WordCount   int    `json:"word_count"`
}

const mdxComponents = `Components you may use sparingly, only where they clearly help:
- <Callout type="info|warning|success|error|tip|note" title="Optional">text</Callout>
- <Alert variant="default|destructive|success|warning|info">text</Alert>
- <Card><CardHeader><CardTitle>Title</CardTitle></CardHeader><CardContent>text</CardContent></Card>
- <Progress value={50} max={100} showValue={true} />
- <CodeBlock language="go" title="Example">code</CodeBlock>
`

// MDX restructures content into an MDX document with a front-matter block.
// Replies without a block, and service failures, yield a locally built
// document instead.
func (g *Gateway) MDX(ctx context.Context, req MDXRequest) (MDXResult, error) {
	if err := req.Validate(); err != nil {
		return MDXResult{}, invalid(err)
	}
	category := orDefault(req.Category, defaultCategory)
	components := "Use plain Markdown only; do not add components.\n"
	if req.SuggestComponents {
		components = mdxComponents
	}

	raw, err := g.complete(ctx, "mdx", Prompt{
		System: "You format blog posts as clean MDX with a YAML front-matter block.",
		User: fmt.Sprintf(`Convert this blog content into MDX.

- Start with YAML front matter holding title, date, category, tags and summary
- Use a sensible heading hierarchy
- Keep the original meaning

%s
TITLE: %s
CATEGORY: %s
TAGS: %s
SUMMARY: %s

CONTENT:
%s

Reply with the MDX document only:`, components, req.Title, category, strings.Join(req.Tags, ", "), req.Summary, req.Content),
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	if err != nil && !degrade(err) {
		return MDXResult{}, err
	}

	if err == nil {
		if doc := stripFence(raw); hasClosedBlock(doc) {
			return MDXResult{MDXContent: doc, GeneratedBy: "ai", WordCount: wordCount(doc)}, nil
		}
	}

	doc, buildErr := g.fallbackMDX(req, category)
	if buildErr != nil {
		return MDXResult{}, buildErr
	}
	return MDXResult{MDXContent: doc, GeneratedBy: "fallback", WordCount: wordCount(doc)}, nil
}

func (g *Gateway) fallbackMDX(req MDXRequest, category string) (string, error) {
	tags := []string(req.Tags)
	if tags == nil {
		tags = []string{}
	}
	var fields frontmatter.Fields
	fields.Add("title", req.Title)
	fields.Add("date", content.Today(g.now()))
	fields.Add("category", category)
	fields.Add("tags", tags)
	fields.Add("summary", orDefault(req.Summary, "A blog post about "+req.Title))
	out, err := frontmatter.Compose(fields, "# "+req.Title+"\n\n"+req.Content)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// stripFence removes a Markdown code fence wrapped around the whole reply.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	_, rest, ok := strings.Cut(s, "\n")
	if !ok {
		return s
	}
	rest = strings.TrimSpace(rest)
	return strings.TrimSpace(strings.TrimSuffix(rest, "```"))
}

func hasClosedBlock(s string) bool {
	if !frontmatter.HasBlock(s) {
		return false
	}
	_, rest, _ := strings.Cut(s, "\n")
	for _, line := range strings.Split(rest, "\n") {
		if strings.TrimSpace(line) == frontmatter.Delimiter {
			return true
		}
	}
	return false
}
