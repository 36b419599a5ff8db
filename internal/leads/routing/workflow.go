package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"admissions_crm/internal/events"
	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/leads/oracle"
	"admissions_crm/internal/leads/repository"
	"admissions_crm/platform/apperr"
	"admissions_crm/platform/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	opRun           = "leads.routing.run"
	opEvaluateScore = "leads.routing.evaluate_score"
	opManualRoute   = "leads.routing.manual_route"

	maxReasonLength = 1000
	tracerName      = "admissions_crm/routing"
)

// Oracle is implemented by *oracle.Advisor. Any error makes the stage fall
// back to its heuristic.
type Oracle interface {
	Enrich(ctx context.Context, p oracle.Profile) (oracle.Enrichment, error)
	Score(ctx context.Context, p oracle.Profile) (int, error)
	Route(ctx context.Context, p oracle.Profile) (oracle.Decision, error)
}

type Repository interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	SaveLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	GetCounsellor(ctx context.Context, id uuid.UUID) (domain.Counsellor, error)
	AddActivity(ctx context.Context, activity domain.LeadActivity) (domain.LeadActivity, error)
}

// Source records where a stage's output came from.
type Source string

const (
	SourceOracle    Source = "oracle"
	SourceHeuristic Source = "heuristic"
	SourceManual    Source = "manual"
)

type Sources struct {
	Enrichment Source `json:"enrichment,omitempty"`
	Score      Source `json:"score,omitempty"`
	Route      Source `json:"route,omitempty"`
}

// Pipeline is the value threaded through the stages.
type Pipeline struct {
	Lead       domain.Lead       `json:"lead"`
	Enrichment oracle.Enrichment `json:"enrichment"`
	Score      int               `json:"score"`
	Decision   oracle.Decision   `json:"decision"`
	Sources    Sources           `json:"sources"`
}

// TerminalPolicy decides what happens when a closed lead is routed.
type TerminalPolicy int

const (
	WarnTerminal TerminalPolicy = iota
	RejectTerminal
)

type Options struct {
	Terminal TerminalPolicy
}

type Workflow struct {
	repo   Repository
	oracle Oracle
	bus    events.Bus
	log    *logger.Logger
	tracer trace.Tracer
}

// NewWorkflow builds a workflow. A nil oracle runs every stage on heuristics.
func NewWorkflow(repo Repository, o Oracle, bus events.Bus, log *logger.Logger) *Workflow {
	if log == nil {
		log = logger.Nop()
	}
	return &Workflow{repo: repo, oracle: o, bus: bus, log: log, tracer: otel.Tracer(tracerName)}
}

// Run enriches, scores and routes one lead, then applies the destination's
// actions.
func (w *Workflow) Run(ctx context.Context, leadID uuid.UUID, opts Options) (Pipeline, error) {
	ctx, span := w.tracer.Start(ctx, "routing.run", trace.WithAttributes(attribute.String("lead.id", leadID.String())))
	defer span.End()

	lead, err := w.load(ctx, leadID, opts, opRun)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Pipeline{}, err
	}

	p := &Pipeline{Lead: lead}
	w.enrich(ctx, p)
	if err := w.saveStage(ctx, p, "enrichment"); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return *p, err
	}
	w.score(ctx, p)
	if err := w.saveStage(ctx, p, "score"); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return *p, err
	}
	w.route(ctx, p)

	span.SetAttributes(
		attribute.String("routing.route", string(p.Decision.Route)),
		attribute.Int("routing.score", p.Score),
	)

	if err := w.commit(ctx, p, false, opRun); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return *p, err
	}
	return *p, nil
}

// EvaluateScore runs only the scoring stage and stores the result.
func (w *Workflow) EvaluateScore(ctx context.Context, leadID uuid.UUID) (Pipeline, error) {
	lead, err := w.load(ctx, leadID, Options{}, opEvaluateScore)
	if err != nil {
		return Pipeline{}, err
	}
	p := &Pipeline{Lead: lead}
	w.score(ctx, p)

	saved, err := w.repo.SaveLead(ctx, p.Lead)
	if err != nil {
		return *p, apperr.Wrap(apperr.KindInternal, "failed to save score", err).WithOp(opEvaluateScore)
	}
	p.Lead = saved
	return *p, nil
}

// ManualRoute applies a destination chosen by an administrator. The stored
// score is kept as is.
func (w *Workflow) ManualRoute(ctx context.Context, leadID uuid.UUID, route domain.Route, customReason string) (Pipeline, error) {
	route, err := domain.ParseRoute(string(route))
	if err != nil {
		return Pipeline{}, apperr.Validation(err.Error()).WithOp(opManualRoute)
	}
	lead, err := w.load(ctx, leadID, Options{}, opManualRoute)
	if err != nil {
		return Pipeline{}, err
	}

	reason := fmt.Sprintf("Manually routed to %s by admin", route.Label())
	if custom := strings.TrimSpace(customReason); custom != "" {
		reason = "Manual routing: " + custom
	}

	p := &Pipeline{
		Lead:     lead,
		Decision: oracle.Decision{Route: route, Reason: reason},
		Sources:  Sources{Route: SourceManual},
	}
	if lead.ConversionScore != nil {
		p.Score = *lead.ConversionScore
	}
	if err := w.commit(ctx, p, true, opManualRoute); err != nil {
		return *p, err
	}
	return *p, nil
}

// saveStage persists the fields a stage wrote onto the lead.
func (w *Workflow) saveStage(ctx context.Context, p *Pipeline, stage string) error {
	saved, err := w.repo.SaveLead(ctx, p.Lead)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to save "+stage, err).WithOp(opRun)
	}
	p.Lead = saved
	return nil
}

func (w *Workflow) load(ctx context.Context, leadID uuid.UUID, opts Options, op string) (domain.Lead, error) {
	lead, err := w.repo.GetLead(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp(op)
	}
	if err != nil {
		return domain.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err).WithOp(op)
	}

	if lead.Status.IsTerminal() {
		if opts.Terminal == RejectTerminal {
			return domain.Lead{}, apperr.Conflict(fmt.Sprintf("lead is already %s", lead.Status)).WithOp(op)
		}
		w.log.Warn("routing a closed lead", "leadId", lead.ID, "status", lead.Status)
	}
	return lead, nil
}

func (w *Workflow) enrich(ctx context.Context, p *Pipeline) {
	ctx, span := w.tracer.Start(ctx, "routing.enrich")
	defer span.End()

	p.Sources.Enrichment = SourceHeuristic
	fallback := FallbackEnrichment(p.Lead)
	e := fallback

	if w.oracle != nil {
		got, err := w.oracle.Enrich(ctx, oracle.ProfileFromLead(p.Lead))
		if err != nil {
			span.RecordError(err)
			w.log.OracleFallback(string(oracle.StageEnrichment), err)
		} else {
			p.Sources.Enrichment = SourceOracle
			e = got
			if e.AcademicProfile == "" {
				e.AcademicProfile = fallback.AcademicProfile
			}
			if e.Notes == "" {
				e.Notes = fallback.Notes
			}
		}
	}

	p.Enrichment = e
	p.Lead.AcademicProfile = e.AcademicProfile
	p.Lead.EnrichmentNotes = e.Notes
	span.SetAttributes(attribute.String("routing.source", string(p.Sources.Enrichment)))
}

func (w *Workflow) score(ctx context.Context, p *Pipeline) {
	ctx, span := w.tracer.Start(ctx, "routing.score")
	defer span.End()

	p.Sources.Score = SourceHeuristic
	score := -1
	if w.oracle != nil {
		got, err := w.oracle.Score(ctx, oracle.ProfileFromLead(p.Lead))
		if err == nil {
			err = p.Lead.SetConversionScore(got)
		}
		if err != nil {
			span.RecordError(err)
			w.log.OracleFallback(string(oracle.StageScoring), err)
		} else {
			score = got
			p.Sources.Score = SourceOracle
		}
	}
	if score < 0 {
		l := p.Lead
		score = FallbackScore(l.Status, l.Priority, l.GraduationStatus, l.CourseInterested, l.SchoolName)
		if err := p.Lead.SetConversionScore(score); err != nil {
			span.RecordError(err)
			w.log.Warn("fallback score rejected", "error", err, "leadId", p.Lead.ID, "score", score)
		}
	}

	p.Score = score
	span.SetAttributes(
		attribute.String("routing.source", string(p.Sources.Score)),
		attribute.Int("routing.score", score),
	)
}

func (w *Workflow) route(ctx context.Context, p *Pipeline) {
	ctx, span := w.tracer.Start(ctx, "routing.route")
	defer span.End()

	p.Sources.Route = SourceHeuristic
	var d oracle.Decision
	if w.oracle != nil {
		got, err := w.oracle.Route(ctx, oracle.ProfileFromLead(p.Lead))
		if err != nil {
			span.RecordError(err)
			w.log.OracleFallback(string(oracle.StageRouting), err)
		} else {
			d = got
			p.Sources.Route = SourceOracle
		}
	}
	if d.Route == "" {
		d.Route = FallbackRoute(p.Lead.GraduationStatus, p.Lead.CourseInterested, p.Score)
	}
	if strings.TrimSpace(d.Reason) == "" {
		d.Reason = DefaultReason(d.Route, p.Score, p.Lead.CourseInterested, p.Lead.GraduationStatus)
	}

	p.Decision = d
	span.SetAttributes(
		attribute.String("routing.source", string(p.Sources.Route)),
		attribute.String("routing.route", string(d.Route)),
	)
}

// commit persists the decision, applies the destination's actions, records
// the ROUTED activity and publishes LeadRouted.
func (w *Workflow) commit(ctx context.Context, p *Pipeline, manual bool, op string) error {
	action, ok := Actions[p.Decision.Route]
	if !ok {
		return apperr.Validation(fmt.Sprintf("unknown routing destination %q", p.Decision.Route)).WithOp(op)
	}

	reason := p.Decision.Reason
	p.Lead.RoutedTo = p.Decision.Route
	p.Lead.RoutingReason = truncate(reason, maxReasonLength)
	action.Apply(&p.Lead, reason)

	saved, err := w.repo.SaveLead(ctx, p.Lead)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to save routed lead", err).WithOp(op)
	}
	p.Lead = saved

	_, err = w.repo.AddActivity(ctx, domain.LeadActivity{
		LeadID:       saved.ID,
		CounsellorID: saved.AssignedCounsellorID,
		Type:         domain.ActivityRouted,
		Description:  ActivityDescription(p.Decision.Route, reason),
	})
	if err != nil {
		w.log.Error("failed to record routing activity", "error", err, "leadId", saved.ID)
	}

	w.publish(ctx, p, action, manual)
	return nil
}

func (w *Workflow) publish(ctx context.Context, p *Pipeline, action Action, manual bool) {
	if w.bus == nil {
		return
	}
	evt := events.LeadRouted{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       p.Lead.ID,
		Route:        string(p.Decision.Route),
		Reason:       p.Decision.Reason,
		Score:        p.Score,
		AdminMessage: action.AdminMessage(p.Lead),
		Manual:       manual,
	}
	if p.Lead.AssignedCounsellorID != nil {
		c, err := w.repo.GetCounsellor(ctx, *p.Lead.AssignedCounsellorID)
		if err != nil {
			w.log.Warn("routing admin recipient unavailable", "error", err, "leadId", p.Lead.ID)
		} else {
			userID := c.UserID
			evt.AdminUserID = &userID
		}
	}
	w.bus.Publish(ctx, evt)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
