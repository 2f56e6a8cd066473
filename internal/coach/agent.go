package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nutricoach/internal/catalog"
)

// Options bounds what the agent sends to the model.
type Options struct {
	HistoryLimit        int
	ProductCatalogLimit int
	RegionalFoodLimit   int
	Policy              RecommendationPolicy
}

// Agent runs one coaching turn. It holds no per-user state.
type Agent struct {
	gen     Generator
	catalog *catalog.Catalog
	opts    Options
}

func NewAgent(gen Generator, cat *catalog.Catalog, opts Options) *Agent {
	return &Agent{gen: gen, catalog: cat, opts: opts}
}

// Request is the input of one turn.
type Request struct {
	Profile Profile
	// History is the persisted conversation, oldest first. It may be longer
	// than the context window; the policy looks at all of it.
	History   []Turn
	Text      string
	ImageData string // data URL, optional
}

// Reply is the outcome of a successful turn.
type Reply struct {
	Text                     string
	RawText                  string
	FoodAnalysis             *FoodAnalysis
	Recommendation           *ProductRecommendation
	RecommendationSuppressed bool

	// Image is the decoded user image, nil when none was sent or it was dropped.
	Image *Image
}

// Respond compiles the prompt, calls the model once and extracts the reply.
// Only a generation failure, or a turn sent with neither text nor image, is
// returned as an error. Every other problem is logged and degraded around.
func (a *Agent) Respond(ctx context.Context, log *zerolog.Logger, req Request) (Reply, error) {
	prompt, err := Compile(req.Profile,
		a.catalog.TopProducts(a.opts.ProductCatalogLimit),
		a.catalog.TopRegionalFoods(a.opts.RegionalFoodLimit))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to compile system prompt: %w", err)
	}
	if len(prompt.Defaulted) > 0 {
		log.Warn().Strs("fields", prompt.Defaulted).Msg("Profile fields defaulted for prompt")
	}

	text := req.Text
	var img *Image
	if strings.TrimSpace(req.ImageData) != "" {
		img, err = ParseDataURL(req.ImageData)
		if err != nil {
			log.Warn().Err(err).Msg("Dropping unusable image, continuing text-only")
			img = nil
			if strings.TrimSpace(text) == "" {
				text = UnreadableImagePrompt
			}
		}
	}

	parts, err := BuildParts(text, img)
	if err != nil {
		return Reply{}, err
	}

	window := BuildContextWindow(req.History, a.opts.HistoryLimit)

	raw, err := a.gen.Generate(ctx, log, GenerateRequest{
		SystemInstruction: prompt.Text,
		History:           window,
		Parts:             parts,
	})
	if err != nil {
		log.Error().Err(err).Msg("Model generation failed")
		return Reply{}, err
	}

	ext, diags := Extract(raw)
	for _, d := range diags {
		log.Warn().Err(d).Msg("Ignoring malformed block in model reply")
	}

	rec, suppressed := a.opts.Policy.Apply(ext.Recommendation, req.History)
	if suppressed {
		log.Warn().
			Str("product", ext.Recommendation.ProductName).
			Int("cooldown_turns", a.opts.Policy.CooldownTurns).
			Msg("Recommendation suppressed by cooldown")
	}

	return Reply{
		Text:                     ext.CleanText,
		RawText:                  raw,
		FoodAnalysis:             ext.FoodAnalysis,
		Recommendation:           rec,
		RecommendationSuppressed: suppressed,
		Image:                    img,
	}, nil
}
