package inference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfield/sparkfield/internal/inference"
)

func TestParseDecisionClean(t *testing.T) {
	d, err := inference.ParseDecision(`{"reasoning": "food is scarce", "changes": {"hungerThreshold": 0.5, "explorationRange": 150}}`)
	require.NoError(t, err)
	assert.Equal(t, "food is scarce", d.Reasoning)
	assert.Equal(t, 0.5, d.Changes["hungerThreshold"])
	assert.Equal(t, 150.0, d.Changes["explorationRange"])
}

func TestParseDecisionProseWrapped(t *testing.T) {
	text := `Here is my assessment of the situation.

{"reasoning": "low energy", "changes": {"resourcePreference": 0.4}}

I hope this helps!`
	d, err := inference.ParseDecision(text)
	require.NoError(t, err)
	assert.Equal(t, "low energy", d.Reasoning)
	assert.Equal(t, 0.4, d.Changes["resourcePreference"])
}

func TestParseDecisionBareNewlinesInString(t *testing.T) {
	text := "{\"reasoning\": \"first thought\nsecond thought\", \"changes\": {\"restDuration\": 10}}"
	d, err := inference.ParseDecision(text)
	require.NoError(t, err)
	assert.Equal(t, "first thought\nsecond thought", d.Reasoning)
	assert.Equal(t, 10.0, d.Changes["restDuration"])
}

func TestParseDecisionNormalizesKeyCasing(t *testing.T) {
	d, err := inference.ParseDecision(`{"reasoning": "r", "changes": {"hunger_threshold": 0.5, "EXPLORATIONRANGE": 90}}`)
	require.NoError(t, err)
	assert.Equal(t, 0.5, d.Changes["hungerThreshold"])
	assert.Equal(t, 90.0, d.Changes["explorationRange"])
}

func TestParseDecisionQuotedNumbers(t *testing.T) {
	d, err := inference.ParseDecision(`{"reasoning": "r", "changes": {"noveltyPreference": "0.7"}}`)
	require.NoError(t, err)
	assert.Equal(t, 0.7, d.Changes["noveltyPreference"])
}

func TestParseDecisionIgnoresUnknownParams(t *testing.T) {
	d, err := inference.ParseDecision(`{"reasoning": "r", "changes": {"luck": 0.9, "persistenceFactor": 0.6}}`)
	require.NoError(t, err)
	assert.NotContains(t, d.Changes, "luck")
	assert.Equal(t, 0.6, d.Changes["persistenceFactor"])
}

func TestParseDecisionLooseFallback(t *testing.T) {
	// Trailing comma makes strict decoding fail; the scanner still
	// recovers the pairs.
	text := `{"reasoning": "rough output", "changes": {"hungerThreshold": 0.5, "restDuration": 12,}}`
	d, err := inference.ParseDecision(text)
	require.NoError(t, err)
	assert.Equal(t, 0.5, d.Changes["hungerThreshold"])
	assert.Equal(t, 12.0, d.Changes["restDuration"])
	assert.Equal(t, "rough output", d.Reasoning)
}

func TestParseDecisionNoObject(t *testing.T) {
	_, err := inference.ParseDecision("I cannot decide anything right now.")
	assert.Error(t, err)
}

func TestParseDecisionUnusable(t *testing.T) {
	_, err := inference.ParseDecision(`{"story": "once upon a time"}`)
	assert.Error(t, err)
}

func TestDecisionSummary(t *testing.T) {
	d := &inference.Decision{Changes: map[string]float64{"hungerThreshold": 0.5}}
	assert.Contains(t, d.Summary(), "hungerThreshold")
}
