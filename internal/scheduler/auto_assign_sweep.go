package scheduler

import (
	"context"
	"errors"
	"time"

	"admissions_crm/internal/leads/assignment"
	"admissions_crm/platform/apperr"
	"admissions_crm/platform/logger"
)

// AutoAssignSweep periodically distributes leads that are still unassigned.
type AutoAssignSweep struct {
	assigner BatchAssigner
	method   assignment.Method
	interval time.Duration
	log      *logger.Logger
}

// NewAutoAssignSweep returns nil when interval is not positive.
func NewAutoAssignSweep(assigner BatchAssigner, method string, interval time.Duration, log *logger.Logger) *AutoAssignSweep {
	if assigner == nil || interval <= 0 {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AutoAssignSweep{
		assigner: assigner,
		method:   assignment.ParseMethod(method),
		interval: interval,
		log:      log,
	}
}

func (s *AutoAssignSweep) Run(ctx context.Context) {
	if s == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *AutoAssignSweep) sweep(ctx context.Context) {
	result, err := s.assigner.AssignUnassigned(ctx, s.method)
	if errors.Is(err, assignment.ErrNoActiveCounsellors) {
		s.log.Debug("auto-assign sweep skipped, no active counsellors", "method", s.method)
		return
	}
	if apperr.Is(err, apperr.KindConflict) {
		s.log.Debug("auto-assign sweep skipped, batch already running")
		return
	}
	if err != nil {
		s.log.Warn("auto-assign sweep failed", "error", err)
		return
	}
	if result.Assigned > 0 || result.Failed > 0 {
		s.log.Info("auto-assign sweep distributed leads", "method", s.method, "assigned", result.Assigned, "failed", result.Failed)
	}
}
