package llm

import (
	_ "embed"
)

//go:embed prompts/cv_tuner.txt
var cvTunerPrompt string

// CVTunerSystemPrompt returns the fixed persona sent as the system message of
// every optimization, byte for byte including its surrounding newlines.
func CVTunerSystemPrompt() string {
	return cvTunerPrompt
}
