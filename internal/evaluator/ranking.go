package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/template-eval/internal/prompt"
	"github.com/giantswarm/template-eval/internal/response"
	"github.com/giantswarm/template-eval/internal/telemetry"
)

// RankingInput describes the components to rank.
type RankingInput struct {
	Components []string
	Specialty  string
	Condition  string
}

// RankingMetadata holds information about a ranking.
type RankingMetadata struct {
	Timestamp         string `json:"timestamp"`
	Specialty         string `json:"specialty"`
	Condition         string `json:"condition"`
	Model             string `json:"model"`
	ComponentCount    int    `json:"component_count"`
	PromptVersion     string `json:"prompt_version"`
	PromptDescription string `json:"prompt_description"`
}

// RankingOutput is the structured ranking output. Essential lists the
// components at or above the cut-line, in rank order.
type RankingOutput struct {
	Metadata          RankingMetadata   `json:"metadata"`
	Result            response.Result   `json:"result"`
	Ranking           *response.Ranking `json:"ranking,omitempty"`
	CriticalThreshold *int              `json:"critical_threshold,omitempty"`
	Essential         []string          `json:"essential,omitempty"`
	ParseErr          string            `json:"parse_error,omitempty"`
}

// Rank composes the ranking prompt, queries the model once and parses the
// ordering it returns. A failed request is returned as an error; an
// unparseable reply is recorded in ParseErr.
func (e *Evaluator) Rank(ctx context.Context, in RankingInput) (*RankingOutput, error) {
	if len(in.Components) == 0 {
		return nil, fmt.Errorf("no components to rank")
	}

	text, err := prompt.Ranking(prompt.RankingInput{
		Components: in.Components,
		Specialty:  in.Specialty,
		Condition:  in.Condition,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build ranking prompt: %w", err)
	}

	slog.Info("ranking components", "count", len(in.Components), "model", e.config.Model)

	reply, err := e.complete(ctx, "", text)
	if err != nil {
		e.metrics.RecordReply(ctx, "ranking", telemetry.OutcomeError)
		return nil, fmt.Errorf("ranking failed: %w", err)
	}

	output := &RankingOutput{
		Metadata: RankingMetadata{
			Timestamp:         time.Now().Format(time.RFC3339),
			Specialty:         in.Specialty,
			Condition:         in.Condition,
			Model:             e.config.Model,
			ComponentCount:    len(in.Components),
			PromptVersion:     prompt.RankingVersion,
			PromptDescription: prompt.RankingDescription,
		},
		Result: e.parser.ParseRanking(reply),
	}

	if msg, ok := output.Result.ErrorMessage(); ok {
		output.ParseErr = msg
		e.metrics.RecordReply(ctx, "ranking", telemetry.OutcomeFallback)
		slog.Warn("ranking reply could not be parsed", "error", msg)
		return output, nil
	}

	ranking, err := response.DecodeRanking(output.Result)
	if err != nil {
		output.ParseErr = err.Error()
		e.metrics.RecordReply(ctx, "ranking", telemetry.OutcomeFallback)
		slog.Warn("ranking reply has unexpected shape", "error", err)
		return output, nil
	}
	e.metrics.RecordReply(ctx, "ranking", telemetry.OutcomeParsed)
	output.Ranking = ranking

	if len(ranking.Rankings) != len(in.Components) {
		slog.Warn("ranking length differs from component count",
			"ranked", len(ranking.Rankings),
			"components", len(in.Components),
		)
	}

	if threshold, ok := ranking.CriticalThreshold(); ok {
		output.CriticalThreshold = &threshold
		for _, c := range ranking.Top(threshold) {
			output.Essential = append(output.Essential, c.Component)
		}
	}

	return output, nil
}
