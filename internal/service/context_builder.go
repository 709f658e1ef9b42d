package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"leadbot/internal/metrics"
	"leadbot/internal/model"
)

// ContextBuilder produces semantic guidance for the current turn
type ContextBuilder interface {
	Build(ctx context.Context, message, industry string, conv model.ConversationContext) (*model.Guidance, error)
}

// ConversationSearcher finds stored exchanges similar to an embedding
type ConversationSearcher interface {
	FindSimilarConversations(ctx context.Context, embedding []float32, industry string, threshold float64, limit int) ([]model.SimilarConversation, error)
}

const (
	defaultSimilarityThreshold = 0.75
	defaultSimilarityLimit     = 5
	guidanceCacheTTL           = time.Hour
	bestPatternMinConversion   = 0.7
	topSignals                 = 3
)

// SemanticContextBuilder looks up similar past conversations and turns them into guidance
type SemanticContextBuilder struct {
	embedder  Embedder
	searcher  ConversationSearcher
	cache     Cache
	metrics   *metrics.Exporter
	threshold float64
	limit     int
}

// NewSemanticContextBuilder creates a new builder. A nil cache disables result caching.
func NewSemanticContextBuilder(embedder Embedder, searcher ConversationSearcher, cache Cache, exporter *metrics.Exporter, threshold float64, limit int) *SemanticContextBuilder {
	if threshold <= 0 {
		threshold = defaultSimilarityThreshold
	}
	if limit <= 0 {
		limit = defaultSimilarityLimit
	}
	return &SemanticContextBuilder{
		embedder:  embedder,
		searcher:  searcher,
		cache:     cache,
		metrics:   exporter,
		threshold: threshold,
		limit:     limit,
	}
}

// Build searches similar conversations and derives guidance from them
func (b *SemanticContextBuilder) Build(ctx context.Context, message, industry string, conv model.ConversationContext) (*model.Guidance, error) {
	key := fmt.Sprintf("leadbot:rag:%s:%s", industry, NormalizedTextKey(message))

	if b.cache != nil {
		var cached model.Guidance
		hit, err := b.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("cache", "guidance").Msg("cache read failed")
		}
		b.metrics.RecordCache("guidance", hit)
		if hit {
			return &cached, nil
		}
	}

	embedding, err := b.embedder.Embed(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("embed message: %w", err)
	}

	similar, err := b.searcher.FindSimilarConversations(ctx, embedding, industry, b.threshold, b.limit)
	if err != nil {
		return nil, fmt.Errorf("search similar conversations: %w", err)
	}

	guidance := AnalyzeSimilarConversations(similar)

	log.Debug().Str("stage", string(conv.Stage)).Int("similar", len(similar)).
		Strs("problems", guidance.DetectedProblems).Float64("confidence", guidance.Confidence.Overall).
		Msg("semantic context built")

	if b.cache != nil {
		if err := b.cache.SetJSON(ctx, key, guidance, guidanceCacheTTL); err != nil {
			log.Warn().Err(err).Str("cache", "guidance").Msg("cache write failed")
		}
	}
	return guidance, nil
}

// EmptyGuidance is the guidance used when no similar conversations are available
func EmptyGuidance() *model.Guidance {
	return AnalyzeSimilarConversations(nil)
}

// AnalyzeSimilarConversations aggregates similar conversations into guidance
func AnalyzeSimilarConversations(similar []model.SimilarConversation) *model.Guidance {
	problems, maxProblem := rankByFrequency(similar, func(c model.SimilarConversation) *string { return c.ProblemDetected })
	solutions, maxSolution := rankByFrequency(similar, func(c model.SimilarConversation) *string { return c.SolutionPresented })

	g := &model.Guidance{
		SimilarConversations: similar,
		DetectedProblems:     problems,
		RecommendedSolutions: solutions,
		KeyPoints:            []string{},
		AvoidTopics:          []string{},
		UrgencyLevel:         model.UrgencyLow,
	}

	var best *model.SimilarConversation
	var similaritySum float64
	for i := range similar {
		c := &similar[i]
		similaritySum += c.Similarity
		if c.ConversionScore != nil && *c.ConversionScore > bestPatternMinConversion {
			if best == nil || *c.ConversionScore > *best.ConversionScore {
				best = c
			}
		}
	}
	if best != nil {
		g.BestPattern = &model.ResponsePattern{
			Approach:        best.AssistantResponse,
			ConversionScore: *best.ConversionScore,
			Stage:           model.StageSolutioning,
		}
	}

	total := float64(len(similar))
	avgSimilarity := similaritySum / math.Max(total, 1)
	if total > 0 {
		g.Confidence.ProblemDetection = math.Min(float64(maxProblem)/total, 1)
		g.Confidence.SolutionMatch = math.Min(float64(maxSolution)/total, 1)
	}
	g.Confidence.Overall = (avgSimilarity + g.Confidence.ProblemDetection + g.Confidence.SolutionMatch) / 3

	applyGuidanceRules(g)
	return g
}

func applyGuidanceRules(g *model.Guidance) {
	overall := g.Confidence.Overall

	if overall > 0.8 && g.BestPattern != nil {
		g.KeyPoints = append(g.KeyPoints,
			fmt.Sprintf("Similar conversations with %d%% conversion rate used this approach", int(math.Round(g.BestPattern.ConversionScore*100))),
			"Focus on problem quantification and impact",
		)
	}
	if overall > 0.5 && overall <= 0.8 {
		g.KeyPoints = append(g.KeyPoints,
			"Ask 2-3 discovery questions to clarify the problem",
			"Avoid premature solution presentation",
		)
	}
	if overall <= 0.5 {
		g.KeyPoints = append(g.KeyPoints, "Stay in discovery mode - ask open-ended questions")
		g.AvoidTopics = append(g.AvoidTopics, "Specific solution recommendations")
	}

	for _, p := range g.DetectedProblems {
		if strings.Contains(p, "churn") || strings.Contains(p, "fraud") {
			g.UrgencyLevel = model.UrgencyHigh
			g.KeyPoints = append(g.KeyPoints, "Emphasize cost of inaction and urgency")
			break
		}
	}

	switch {
	case overall > 0.8:
		g.SuggestedApproach = "Present solution with proven talking points"
	case overall > 0.5:
		g.SuggestedApproach = "Ask qualifying questions to confirm problem"
	default:
		g.SuggestedApproach = "Continue discovery to understand pain points"
	}
}

// rankByFrequency returns the most frequent values (ties keep first-seen order) and the top count
func rankByFrequency(similar []model.SimilarConversation, field func(model.SimilarConversation) *string) ([]string, int) {
	counts := map[string]int{}
	order := []string{}
	for _, c := range similar {
		v := field(c)
		if v == nil || *v == "" {
			continue
		}
		if _, ok := counts[*v]; !ok {
			order = append(order, *v)
		}
		counts[*v]++
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	top := 0
	if len(order) > 0 {
		top = counts[order[0]]
	}
	if len(order) > topSignals {
		order = order[:topSignals]
	}
	return order, top
}
