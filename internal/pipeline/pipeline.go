// Package pipeline runs one analysis: claim extraction, prioritization,
// two verification waves, risk scoring and the closing critique.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/faultline/internal/llm"
	"github.com/ppiankov/faultline/internal/model"
	"github.com/ppiankov/faultline/internal/prioritize"
	"github.com/ppiankov/faultline/internal/score"
	"github.com/ppiankov/faultline/internal/worker"
)

// Pipeline orchestrates analysis runs
type Pipeline struct {
	extractor   llm.Extractor
	critic      llm.Critic
	scheduler   *worker.Scheduler
	prioritizer *prioritize.Prioritizer
	config      *model.Config
	logger      *slog.Logger
	now         func() time.Time
}

// NewPipeline creates a pipeline. settler performs one claim's complete
// verification (normally a worker.RetryingVerifier).
func NewPipeline(cfg *model.Config, extractor llm.Extractor, critic llm.Critic, settler worker.Settler, logger *slog.Logger) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		extractor:   extractor,
		critic:      critic,
		scheduler:   worker.NewScheduler(settler, cfg.Verification.Concurrency, logger),
		prioritizer: prioritize.New(cfg.Verification.MinImportance),
		config:      cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// run carries the mutable state of one Analyze call
type run struct {
	p     *Pipeline
	pub   *Publisher
	acc   *Accumulator
	state model.RunState
	log   *slog.Logger
}

// Analyze runs the whole analysis of in, publishing a snapshot to pub at
// every step (pub may be nil). Extraction failures end the run in phase
// failed and are returned together with the failed state.
func (p *Pipeline) Analyze(ctx context.Context, in Input, pub *Publisher) (*model.RunState, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	mode := in.Mode
	if mode == "" {
		mode = p.config.Mode
	}
	budget, err := p.config.Budget(mode)
	if err != nil {
		return nil, err
	}

	started := p.now()
	r := &run{
		p:   p,
		pub: pub,
		acc: NewAccumulator(),
		state: model.RunState{
			RunID:     uuid.NewString(),
			Mode:      mode,
			Budget:    budget,
			Phase:     model.PhaseIdle,
			Claims:    []model.Claim{},
			StartedAt: started,
		},
	}
	r.log = p.logger.With("run_id", r.state.RunID)
	defer func() {
		runsTotal.WithLabelValues(string(r.state.Phase)).Inc()
		runDuration.Observe(time.Since(started).Seconds())
	}()

	r.log.Info("analysis started", "mode", mode, "budget", budget, "image", in.Image != nil)
	r.emit(model.PhaseExtracting, "Extracting claims...")

	claims, err := p.extractor.Extract(ctx, llm.ExtractRequest{Text: in.Text, Image: in.Image})
	if err != nil {
		return r.fail(&ExtractionError{Err: err})
	}
	claims = dedupeClaims(claims)
	if len(claims) == 0 {
		return r.fail(ErrNoClaims)
	}
	claimsExtracted.Observe(float64(len(claims)))
	r.state.Claims = claims

	plan := p.prioritizer.Plan(claims, budget)
	for _, o := range plan.Skipped {
		r.acc.Seed(o)
	}
	r.acc.Queue(plan.Selected)

	priority, background := prioritize.SplitWaves(plan.Selected, p.config.Verification.PriorityImportance)
	r.log.Info("claims prioritized",
		"claims", len(claims),
		"selected", len(plan.Selected),
		"priority", len(priority),
		"background", len(background),
	)

	r.emit(model.PhaseVerifyingPriority,
		fmt.Sprintf("Verifying %d priority claims...", len(priority)))
	r.verify(ctx, model.PhaseVerifyingPriority, "priority", priority)

	r.emit(model.PhaseVerifyingBackground,
		fmt.Sprintf("Verifying %d remaining claims...", len(background)))
	r.verify(ctx, model.PhaseVerifyingBackground, "remaining", background)
	r.emit(model.PhaseVerifyingBackground, "Generating critique...")

	critique := p.critique(ctx, in, claims, r.acc.Snapshot(), r.log)
	r.state.Critique = &critique

	final := r.emit(model.PhaseComplete, "Analysis complete")
	r.log.Info("analysis complete",
		"risk", final.RiskLevel,
		"supported", final.Count(model.StatusSupported),
		"contradicted", final.Count(model.StatusContradicted),
		"mixed", final.Count(model.StatusMixed),
		"unverified", final.Count(model.StatusUnverified),
		"skipped", final.Count(model.StatusSkipped),
	)
	return &final, nil
}

// verify runs one wave, merging and publishing as each chunk settles
func (r *run) verify(ctx context.Context, phase model.Phase, label string, claims []model.Claim) {
	if len(claims) == 0 {
		return
	}
	done := 0
	r.p.scheduler.RunChunks(ctx, claims, func(offset int, settled []model.VerificationOutcome) {
		for i, outcome := range settled {
			outcome.ClaimID = claims[offset+i].ID
			r.acc.Merge(outcome)
		}
		done += len(settled)
		r.emit(phase, fmt.Sprintf("Verified %d of %d %s claims", done, len(claims), label))
	})
}

// emit moves the run to phase and publishes a snapshot. Risk is always
// recomputed from the outcomes carried by the same snapshot.
func (r *run) emit(phase model.Phase, message string) model.RunState {
	r.state.Phase = phase
	r.state.Message = message
	r.state.Outcomes = r.acc.Snapshot()
	r.state.RiskLevel = score.Risk(r.state.Outcomes, len(r.state.Claims))
	r.state.UpdatedAt = r.p.now()

	if err := r.pub.Publish(r.state); err != nil {
		r.log.Warn("snapshot not published", "phase", phase, "error", err)
	}
	return r.state.Clone()
}

// fail ends the run in phase failed without emitting any outcomes
func (r *run) fail(err error) (*model.RunState, error) {
	r.log.Error("analysis failed", "error", err)

	r.acc = NewAccumulator()
	r.state.Claims = []model.Claim{}
	r.state.Error = err.Error()
	state := r.emit(model.PhaseFailed, "Analysis failed")
	return &state, err
}

// critique asks the critic for the closing assessment, substituting the
// fallback on any failure
func (p *Pipeline) critique(ctx context.Context, in Input, claims []model.Claim, outcomes map[string]model.VerificationOutcome, log *slog.Logger) model.Critique {
	if p.critic == nil {
		return model.FallbackCritique()
	}
	if err := ctx.Err(); err != nil {
		log.Warn("critique skipped", "error", err)
		return model.FallbackCritique()
	}

	critique, err := p.critic.Critique(ctx, llm.CritiqueRequest{
		Text:     in.Text,
		Claims:   claims,
		Outcomes: outcomes,
	})
	if err != nil || critique == nil {
		if err == nil {
			err = errors.New("empty critique")
		}
		log.Warn("critique failed, using fallback", "error", err)
		return model.FallbackCritique()
	}
	return *critique
}

// dedupeClaims keeps the first claim of every id
func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[string]bool, len(claims))
	out := make([]model.Claim, 0, len(claims))
	for _, c := range claims {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
