package llmutil

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFencedBlock(t *testing.T) {
	response := "```json\n{\"message\": \"ok\"}\n```"

	payload, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"message": "ok"}`, payload)
}

func TestExtractJSONFencedWithoutLanguage(t *testing.T) {
	response := "```\n{\"a\": 1}\n```"

	payload, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, payload)
}

func TestExtractJSONBuriedInProse(t *testing.T) {
	response := `Sure! Here is the plan: {"done": true, "actions": []} Let me know if that works.`

	payload, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"done": true, "actions": []}`, payload)
}

func TestExtractJSONArray(t *testing.T) {
	response := "```json\n[1, 2, 3]\n```"

	payload, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `[1, 2, 3]`, payload)
}

func TestExtractJSONNoPayload(t *testing.T) {
	_, err := ExtractJSON("I could not come up with anything.")
	assert.Error(t, err)

	_, err = ExtractJSON("")
	assert.Error(t, err)

	_, err = ExtractJSON("   \n\t ")
	assert.Error(t, err)
}

func TestParseJSONResponseTyped(t *testing.T) {
	type verdict struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}

	parsed, err := ParseJSONResponse[verdict]("```json\n{\"status\":\"complete\",\"message\":\"done\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "complete", parsed.Status)
	assert.Equal(t, "done", parsed.Message)
}

func TestParseJSONResponseUnmarshalError(t *testing.T) {
	type verdict struct {
		Status string `json:"status"`
	}

	_, err := ParseJSONResponse[verdict](`{"status": 42broken}`)
	assert.ErrorContains(t, err, "failed to unmarshal")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("abc", 0))
}

// FuzzExtractJSON asserts the extractor never panics and that anything it
// returns actually contains a brace or bracket.
func FuzzExtractJSON(f *testing.F) {
	f.Add([]byte("```json\n{\"a\": 1}\n```"))
	f.Add([]byte("no json here"))
	f.Add([]byte("{\"nested\": {\"deep\": [1, 2]}}"))

	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		response, err := consumer.GetString()
		if err != nil {
			return
		}

		payload, err := ExtractJSON(response)
		if err != nil {
			return
		}
		if payload == "" {
			t.Fatalf("extractor returned empty payload without error for %q", response)
		}
	})
}
