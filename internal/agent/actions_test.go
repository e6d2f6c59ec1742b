package agent

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeActionVariants(t *testing.T) {
	cases := []struct {
		name string
		wire wireAction
		want Action
	}{
		{
			name: "navigate",
			wire: wireAction{Tool: "navigate", Params: jsoniter.RawMessage(`{"url":"https://example.com"}`), Reason: "open"},
			want: NavigateAction{URL: "https://example.com", Rationale: "open"},
		},
		{
			name: "click",
			wire: wireAction{Tool: "click", Params: jsoniter.RawMessage(`{"element_id":"button-0"}`), Reason: "press"},
			want: ClickAction{ElementID: "button-0", Rationale: "press"},
		},
		{
			name: "fill",
			wire: wireAction{Tool: "fill", Params: jsoniter.RawMessage(`{"element_id":"input-0","value":"hello"}`), Reason: "enter"},
			want: FillAction{ElementID: "input-0", Value: "hello", Rationale: "enter"},
		},
		{
			name: "type",
			wire: wireAction{Tool: "type", Params: jsoniter.RawMessage(`{"element_id":"input-1","text":"abc"}`), Reason: "append"},
			want: TypeAction{ElementID: "input-1", Text: "abc", Rationale: "append"},
		},
		{
			name: "upload",
			wire: wireAction{Tool: "upload", Params: jsoniter.RawMessage(`{"element_id":"input-2","resource_names":["cv"]}`), Reason: "attach"},
			want: UploadAction{ElementID: "input-2", ResourceNames: []string{"cv"}, Rationale: "attach"},
		},
		{
			name: "wait",
			wire: wireAction{Tool: "wait", Params: jsoniter.RawMessage(`{"seconds":2.5}`), Reason: "settle"},
			want: WaitAction{Seconds: 2.5, Rationale: "settle"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeAction(tc.wire)
			assert.Equal(t, tc.want, got)
			assert.NoError(t, got.validate())
		})
	}
}

func TestDecodeActionUnknownTool(t *testing.T) {
	got := decodeAction(wireAction{Tool: "teleport", Reason: "shortcut"})

	inv, ok := got.(invalidAction)
	require.True(t, ok)
	assert.Equal(t, "teleport", inv.Tool())
	assert.ErrorContains(t, inv.validate(), "unknown tool")
}

func TestDecodeActionMalformedParams(t *testing.T) {
	got := decodeAction(wireAction{Tool: "wait", Params: jsoniter.RawMessage(`{"seconds":"soon"}`)})

	_, ok := got.(invalidAction)
	require.True(t, ok)
	assert.Error(t, got.validate())
}

func TestNavigateValidation(t *testing.T) {
	assert.NoError(t, NavigateAction{URL: "https://example.com/a?b=1"}.validate())
	assert.Error(t, NavigateAction{}.validate())
	assert.Error(t, NavigateAction{URL: "javascript:alert(1)"}.validate())
	assert.Error(t, NavigateAction{URL: "ftp://example.com"}.validate())
}

func TestWaitValidationBounds(t *testing.T) {
	assert.Error(t, WaitAction{Seconds: 0}.validate())
	assert.Error(t, WaitAction{Seconds: -3}.validate())
	assert.NoError(t, WaitAction{Seconds: 0.5}.validate())
	assert.NoError(t, WaitAction{Seconds: 10}.validate())
	assert.Error(t, WaitAction{Seconds: 10.1}.validate())
}

func TestUploadValidation(t *testing.T) {
	assert.Error(t, UploadAction{ElementID: "input-0"}.validate())
	assert.Error(t, UploadAction{ElementID: "input-0", ResourceNames: []string{" "}}.validate())
	assert.Error(t, UploadAction{ResourceNames: []string{"cv"}}.validate())
	assert.NoError(t, UploadAction{ElementID: "input-0", ResourceNames: []string{"cv"}}.validate())
}

func TestTypeValidationRequiresText(t *testing.T) {
	assert.Error(t, TypeAction{ElementID: "input-0"}.validate())
	assert.NoError(t, TypeAction{ElementID: "input-0", Text: "x"}.validate())
}

func TestEncodeActionRoundTrip(t *testing.T) {
	original := FillAction{ElementID: "input-0", Value: "hello", Rationale: "enter query"}

	wire := encodeAction(original)
	assert.Equal(t, "fill", wire.Tool)
	assert.Equal(t, "enter query", wire.Reason)

	decoded := decodeAction(wire)
	assert.Equal(t, original, decoded)
}
