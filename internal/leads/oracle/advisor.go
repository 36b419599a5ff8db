package oracle

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/google/uuid"
)

const appPrefix = "admissions_oracle_"

// Advisor runs one ADK agent per stage over the same model. Every call uses
// a fresh session that is deleted afterwards, so calls are independent and
// safe to run concurrently.
type Advisor struct {
	sessionService session.Service
	runners        map[Stage]*runner.Runner
	prompts        map[Stage]prompt
}

func NewAdvisor(llm model.LLM) (*Advisor, error) {
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}

	sessionService := session.InMemoryService()
	runners := make(map[Stage]*runner.Runner, len(prompts))
	for stage, p := range prompts {
		adkAgent, err := llmagent.New(llmagent.Config{
			Name:        p.spec.Name,
			Model:       llm,
			Description: p.spec.Description,
			Instruction: strings.TrimSpace(p.spec.Instruction),
		})
		if err != nil {
			return nil, fmt.Errorf("create %s agent: %w", stage, err)
		}

		r, err := runner.New(runner.Config{
			AppName:        appPrefix + string(stage),
			Agent:          adkAgent,
			SessionService: sessionService,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s runner: %w", stage, err)
		}
		runners[stage] = r
	}

	return &Advisor{sessionService: sessionService, runners: runners, prompts: prompts}, nil
}

func (a *Advisor) Enrich(ctx context.Context, p Profile) (Enrichment, error) {
	text, err := a.ask(ctx, StageEnrichment, p)
	if err != nil {
		return Enrichment{}, err
	}
	return ParseEnrichment(text)
}

func (a *Advisor) Score(ctx context.Context, p Profile) (int, error) {
	text, err := a.ask(ctx, StageScoring, p)
	if err != nil {
		return 0, err
	}
	return ParseScore(text)
}

func (a *Advisor) Route(ctx context.Context, p Profile) (Decision, error) {
	text, err := a.ask(ctx, StageRouting, p)
	if err != nil {
		return Decision{}, err
	}
	return ParseRoute(text)
}

func (a *Advisor) ask(ctx context.Context, stage Stage, p Profile) (string, error) {
	r, ok := a.runners[stage]
	if !ok {
		return "", fmt.Errorf("no runner for stage %s", stage)
	}
	text, err := a.prompts[stage].render(p)
	if err != nil {
		return "", err
	}

	appName := appPrefix + string(stage)
	userID := "oracle"
	sessionID := uuid.NewString()

	if _, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	defer func() {
		_ = a.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	msg := &genai.Content{Role: "user", Parts: []*genai.Part{{Text: text}}}

	var out strings.Builder
	for event, err := range r.Run(ctx, userID, sessionID, msg, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return "", fmt.Errorf("%s oracle: %w", stage, err)
		}
		if event == nil || event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			if part != nil {
				out.WriteString(part.Text)
			}
		}
	}

	answer := strings.TrimSpace(out.String())
	if answer == "" {
		return "", fmt.Errorf("%s oracle: empty response", stage)
	}
	return answer, nil
}
