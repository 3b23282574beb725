package optimize

import (
	"context"
	"strings"
	"time"

	"cv-optimizer/internal/llm"
	"cv-optimizer/internal/shared/metrics"
	"cv-optimizer/internal/shared/telemetry"
)

// DefaultTemperature is the sampling temperature sent with every request.
const DefaultTemperature float32 = 0.7

const (
	documentPreamble   = `\documentclass`
	documentTerminator = `\end{document}`
)

// Service turns a résumé and a job description into a single tailored LaTeX
// document. It holds no per-call state.
type Service struct {
	LLM         llm.Client
	Temperature float32
	Now         func() time.Time
}

// NewService constructs a Service around the given chat client.
func NewService(client llm.Client) *Service {
	return &Service{LLM: client, Temperature: DefaultTemperature, Now: time.Now}
}

// Optimize validates inputs, issues exactly one chat request and returns the
// first completion verbatim.
func (s *Service) Optimize(ctx context.Context, resumeText, jobDescription string) (string, error) {
	if err := Validate(resumeText, jobDescription); err != nil {
		return "", err
	}

	metrics.IncOptimizeStarted()
	start := s.now()
	out, err := s.LLM.Chat(ctx, llm.ChatRequest{
		Messages:    BuildMessages(resumeText, jobDescription),
		Temperature: s.Temperature,
	})
	latency := s.now().Sub(start).Milliseconds()
	metrics.ObserveOptimizeDurationMs(float64(latency))
	if err != nil {
		metrics.IncOptimizeFailed()
		telemetry.Error("optimize.provider_failed", map[string]any{
			"error":      err,
			"latency_ms": latency,
		})
		return "", ErrProvider
	}

	metrics.IncOptimizeCompleted()
	if !strings.Contains(out, documentPreamble) || !strings.Contains(out, documentTerminator) {
		metrics.IncEnvelopeMismatch()
		telemetry.Warn("optimize.envelope_mismatch", map[string]any{
			"has_preamble":   strings.Contains(out, documentPreamble),
			"has_terminator": strings.Contains(out, documentTerminator),
			"length":         len(out),
		})
	}
	telemetry.Info("optimize.completed", map[string]any{
		"latency_ms":    latency,
		"result_length": len(out),
	})
	return out, nil
}

// Validate reports which inputs are empty.
func Validate(resumeText, jobDescription string) error {
	var missing []string
	if resumeText == "" {
		missing = append(missing, "cvText")
	}
	if jobDescription == "" {
		missing = append(missing, "jobDescription")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// BuildMessages returns the system persona followed by one user message
// carrying both inputs under their section labels.
func BuildMessages(resumeText, jobDescription string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: llm.CVTunerSystemPrompt()},
		{Role: llm.RoleUser, Content: "Here is my LaTeX CV:\n" + resumeText + "\n\nHere is the Job Description:\n" + jobDescription},
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
