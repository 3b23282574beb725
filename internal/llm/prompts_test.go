package llm

import (
	"strings"
	"testing"
)

func TestCVTunerSystemPromptIsVerbatim(t *testing.T) {
	prompt := CVTunerSystemPrompt()

	if !strings.HasPrefix(prompt, "\nYou are Johny, a world-class career coach") {
		t.Fatalf("unexpected prompt start %q", prompt[:40])
	}
	if !strings.HasSuffix(prompt, "- Do NOT output analysis. Just the code.\n") {
		t.Fatalf("unexpected prompt end")
	}
	for _, want := range []string{
		"## 🎯 Mission",
		"1. A user’s LaTeX CV",
		"## ⚡ OUTPUT RULES (STRICT)",
		"## 🚫 FORBIDDEN TECHNOLOGIES",
		"Start with \\documentclass...",
		"End with \\end{document}",
		"**Tone the summary accoring to JD** Not completely just ats friendly.",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
	if strings.Contains(prompt, "\\\\documentclass") {
		t.Fatalf("expected single backslashes in LaTeX commands")
	}
}
