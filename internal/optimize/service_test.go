package optimize

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"cv-optimizer/internal/llm"
	"cv-optimizer/internal/shared/telemetry"
)

type fakeLLM struct {
	mu       sync.Mutex
	calls    int
	requests []llm.ChatRequest
	out      string
	err      error
}

func (f *fakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	return f.out, f.err
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const sampleDoc = "\\documentclass{article}\n\\begin{document}\nCV Review for Acme\n\\end{document}"

func TestOptimizeRejectsEmptyInputsWithoutCallingProvider(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))

	tests := []struct {
		name       string
		cv, jd     string
		wantFields []string
	}{
		{name: "empty cv", cv: "", jd: "jd", wantFields: []string{"cvText"}},
		{name: "empty jd", cv: "cv", jd: "", wantFields: []string{"jobDescription"}},
		{name: "both empty", cv: "", jd: "", wantFields: []string{"cvText", "jobDescription"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeLLM{out: sampleDoc}
			svc := NewService(fake)

			_, err := svc.Optimize(context.Background(), tt.cv, tt.jd)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if strings.Join(vErr.Fields, ",") != strings.Join(tt.wantFields, ",") {
				t.Fatalf("expected fields %v, got %v", tt.wantFields, vErr.Fields)
			}
			if fake.callCount() != 0 {
				t.Fatalf("provider must not be contacted, got %d calls", fake.callCount())
			}
		})
	}
}

func TestOptimizeBuildsTwoMessagesAtFixedTemperature(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))

	fake := &fakeLLM{out: sampleDoc}
	svc := NewService(fake)

	got, err := svc.Optimize(context.Background(), "MY CV", "MY JD")
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if got != sampleDoc {
		t.Fatalf("expected verbatim result, got %q", got)
	}
	if fake.callCount() != 1 {
		t.Fatalf("expected exactly one provider call, got %d", fake.callCount())
	}

	req := fake.requests[0]
	if req.Temperature != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", req.Temperature)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != llm.RoleSystem || req.Messages[0].Content != llm.CVTunerSystemPrompt() {
		t.Fatalf("unexpected system message %+v", req.Messages[0])
	}
	wantUser := "Here is my LaTeX CV:\nMY CV\n\nHere is the Job Description:\nMY JD"
	if req.Messages[1].Role != llm.RoleUser || req.Messages[1].Content != wantUser {
		t.Fatalf("unexpected user message %+v", req.Messages[1])
	}
}

func TestOptimizeIsStateless(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))

	fake := &fakeLLM{out: sampleDoc}
	svc := NewService(fake)
	for i := 0; i < 2; i++ {
		if _, err := svc.Optimize(context.Background(), "cv", "jd"); err != nil {
			t.Fatalf("Optimize: %v", err)
		}
	}
	if len(fake.requests[0].Messages) != 2 || len(fake.requests[1].Messages) != 2 {
		t.Fatalf("expected identical two-message requests, got %+v", fake.requests)
	}
	if fake.requests[0].Messages[1].Content != fake.requests[1].Messages[1].Content {
		t.Fatalf("expected identical user messages across calls")
	}
}

func TestOptimizeHidesProviderError(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&buf))

	fake := &fakeLLM{err: errors.New("dial tcp: secret-host refused")}
	svc := NewService(fake)

	_, err := svc.Optimize(context.Background(), "cv", "jd")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if err.Error() != MessageProviderFailure {
		t.Fatalf("expected fixed message, got %q", err.Error())
	}
	if strings.Contains(err.Error(), "secret-host") {
		t.Fatalf("provider detail leaked: %q", err.Error())
	}
	if !strings.Contains(buf.String(), "secret-host") {
		t.Fatalf("expected provider detail in logs, got %q", buf.String())
	}
	if fake.callCount() != 1 {
		t.Fatalf("expected no retries, got %d calls", fake.callCount())
	}
}

func TestOptimizeWarnsOnMissingEnvelopeButReturnsVerbatim(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&buf))

	raw := "```latex\n\\section{Summary}\n```"
	svc := NewService(&fakeLLM{out: raw})

	got, err := svc.Optimize(context.Background(), "cv", "jd")
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if got != raw {
		t.Fatalf("expected verbatim output, got %q", got)
	}
	if !strings.Contains(buf.String(), "optimize.envelope_mismatch") {
		t.Fatalf("expected envelope warning, got %q", buf.String())
	}
}

func TestSystemPromptCarriesFixedRules(t *testing.T) {
	prompt := llm.CVTunerSystemPrompt()
	for _, want := range []string{"Java", "110 CHARACTERS", "ATS"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected system prompt to mention %q", want)
		}
	}
}
