package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"leadbot/internal/config"
	"leadbot/internal/domain"
	"leadbot/internal/metrics"
	"leadbot/internal/model"
)

// Pipeline stage names, as logged and exported
const (
	StageStream  = "stream"
	StageSearch  = "search"
	StagePersist = "persist"
	StageSync    = "sync"
)

// ErrClientGone marks a turn whose client disconnected while tokens were streaming
var ErrClientGone = errors.New("client disconnected during stream")

// Searcher runs a property search and returns ranked matches
type Searcher interface {
	Search(ctx context.Context, params model.SearchParams) ([]model.MatchResult, error)
}

// Persister stores a completed exchange
type Persister interface {
	Persist(ctx context.Context, in PersistInput) (*model.ConversationRecord, error)
}

// RelationshipSync propagates a completed turn into the CRM
type RelationshipSync interface {
	SyncTurn(ctx context.Context, in TurnSyncInput) (*model.LeadSyncResult, error)
}

// Turn is one prepared conversational turn
type Turn struct {
	SessionID      string
	OrganizationID string
	Domain         domain.Config
	Messages       []model.ChatMessage
	UserMessage    string
	SystemPrompt   string
	Preferences    model.PreferenceState
	Extraction     model.ExtractionResult
	Context        model.ConversationContext
	Guidance       *model.Guidance
	StartedAt      time.Time
}

// StageResult is the outcome of one best-effort stage
type StageResult struct {
	Stage    string
	Err      error
	Duration time.Duration
}

// OK reports whether the stage succeeded
func (r StageResult) OK() bool {
	return r.Err == nil
}

// StreamOrchestrator drives one turn from token streaming through its side effects
type StreamOrchestrator struct {
	tokens   TokenSource
	search   Searcher
	persist  Persister
	sync     RelationshipSync
	timeouts config.PipelineConfig
	metrics  *metrics.Exporter

	// onStage observes every completed stage; used by tests
	onStage func(StageResult)
}

// NewStreamOrchestrator creates a new orchestrator. search and sync may be nil
// when no domain uses them.
func NewStreamOrchestrator(tokens TokenSource, search Searcher, persist Persister, sync RelationshipSync, timeouts config.PipelineConfig, exporter *metrics.Exporter) *StreamOrchestrator {
	return &StreamOrchestrator{
		tokens:   tokens,
		search:   search,
		persist:  persist,
		sync:     sync,
		timeouts: timeouts,
		metrics:  exporter,
	}
}

// Run starts the turn and returns its event stream. Events arrive as
// token* then at most one results or results_error then done. The channel
// closes without done when generation fails or the client goes away
// mid-stream; in both cases nothing is persisted or synced.
func (o *StreamOrchestrator) Run(ctx context.Context, turn *Turn) <-chan model.StreamEvent {
	out := make(chan model.StreamEvent)

	go func() {
		defer close(out)
		o.metrics.StreamOpened()
		defer o.metrics.StreamClosed()

		logger := log.With().
			Str("session_id", turn.SessionID).
			Str("domain", string(turn.Domain.Tag)).
			Logger()

		emit := func(ev model.StreamEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		// STREAMING_TOKENS
		response, err := o.streamTokens(ctx, turn, emit)
		if err != nil {
			if errors.Is(err, ErrClientGone) {
				logger.Info().Str("stage", StageStream).Int("chars", len(response)).Msg("client disconnected, turn abandoned")
			} else {
				logger.Error().Err(err).Str("stage", StageStream).Msg("generation failed, turn aborted")
			}
			o.metrics.RecordTurn(string(turn.Domain.Tag), false)
			return
		}

		// Side effects outlive the client connection but not their own timeouts
		bg := context.WithoutCancel(ctx)

		// DECIDE_SEARCH
		searched := ShouldSearch(turn.Domain, response, turn.Preferences)
		var searchParams *model.SearchParams
		if searched {
			// SEARCHING
			var matches []model.MatchResult
			res := o.runStage(bg, logger, StageSearch, o.timeouts.SearchTimeout, func(ctx context.Context) error {
				if o.search == nil {
					return errors.New("no search backend configured")
				}
				params, err := ResolveSearchParams(response, turn.Preferences)
				if err != nil {
					return err
				}
				searchParams = &params
				matches, err = o.search.Search(ctx, params)
				return err
			})
			if res.OK() {
				emit(model.ResultsEvent(matches))
			} else {
				emit(model.ResultsErrorEvent())
			}
		}

		// PERSISTING
		o.runStage(bg, logger, StagePersist, o.timeouts.PersistTimeout, func(ctx context.Context) error {
			_, err := o.persist.Persist(ctx, PersistInput{
				Industry:          string(turn.Domain.Tag),
				SessionID:         turn.SessionID,
				OrganizationID:    turn.OrganizationID,
				UserMessage:       turn.UserMessage,
				AssistantResponse: response,
				Stage:             turn.Context.Stage,
				Guidance:          turn.Guidance,
				ResponseTime:      time.Since(turn.StartedAt),
			})
			return err
		})

		// SYNCING
		if turn.Domain.CRMSyncEnabled && o.sync != nil {
			o.runStage(bg, logger, StageSync, o.timeouts.SyncTimeout, func(ctx context.Context) error {
				_, err := o.sync.SyncTurn(ctx, TurnSyncInput{
					Lead: model.LeadSyncInput{
						SessionID:      turn.SessionID,
						OrganizationID: turn.OrganizationID,
						ContactInfo:    turn.Extraction.ContactInfo,
						Preferences:    turn.Preferences,
						MessageCount:   len(turn.Messages),
						HasSearched:    searched,
						LastMessage:    turn.UserMessage,
					},
					ExtractedFields: turn.Extraction.Fields,
					CanSearch:       turn.Context.CanSearch,
					SearchParams:    searchParams,
				})
				return err
			})
		}

		// DONE
		emit(model.DoneEvent())
		o.metrics.RecordTurn(string(turn.Domain.Tag), true)
		logger.Info().Bool("searched", searched).Dur("took", time.Since(turn.StartedAt)).Msg("turn completed")
	}()

	return out
}

// streamTokens forwards each fragment as it arrives and returns the full reply
func (o *StreamOrchestrator) streamTokens(ctx context.Context, turn *Turn, emit func(model.StreamEvent) bool) (string, error) {
	start := time.Now()
	content, errs := o.tokens.ChatStream(ctx, ChatStreamRequest{
		SystemPrompt: turn.SystemPrompt,
		Messages:     turn.Messages,
		Temperature:  turn.Domain.Temperature,
		MaxTokens:    turn.Domain.MaxTokens,
	})

	var full strings.Builder
	for fragment := range content {
		full.WriteString(fragment)
		o.metrics.RecordToken()
		if !emit(model.TokenEvent(fragment)) {
			o.metrics.RecordStage(StageStream, time.Since(start), ErrClientGone)
			return full.String(), ErrClientGone
		}
	}

	if ctx.Err() != nil {
		o.metrics.RecordStage(StageStream, time.Since(start), ErrClientGone)
		return full.String(), ErrClientGone
	}

	err := <-errs
	o.metrics.RecordStage(StageStream, time.Since(start), err)
	return full.String(), err
}

// runStage runs one best-effort stage under its timeout. The error is
// logged and recorded, never propagated.
func (o *StreamOrchestrator) runStage(ctx context.Context, logger zerolog.Logger, stage string, timeout time.Duration, fn func(context.Context) error) StageResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	res := StageResult{Stage: stage, Err: err, Duration: time.Since(start)}

	o.metrics.RecordStage(stage, res.Duration, err)
	if err != nil {
		logger.Warn().Err(err).Str("stage", stage).Dur("took", res.Duration).Msg("stage failed")
	} else {
		logger.Debug().Str("stage", stage).Dur("took", res.Duration).Msg("stage completed")
	}

	if o.onStage != nil {
		o.onStage(res)
	}
	return res
}
