package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/webpilot-ai/webpilot/api/schemas"
	"github.com/webpilot-ai/webpilot/internal/dom"
)

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface used by the roles.
type MockLLMClient struct {
	mock.Mock
}

var _ schemas.LLMClient = (*MockLLMClient)(nil)

// Generate mocks the LLM generation call.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Close mocks client teardown.
func (m *MockLLMClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// -- Browser Driver Mock --

// MockDriver mocks the agent.Driver interface.
type MockDriver struct {
	mock.Mock
}

var _ Driver = (*MockDriver)(nil)

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockDriver) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dom.Snapshot), args.Error(1)
}

func (m *MockDriver) Screenshot(ctx context.Context, overlays []dom.LabeledBox) ([]byte, error) {
	args := m.Called(ctx, overlays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDriver) Click(ctx context.Context, loc dom.Locator) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *MockDriver) Fill(ctx context.Context, loc dom.Locator, value string) error {
	args := m.Called(ctx, loc, value)
	return args.Error(0)
}

func (m *MockDriver) Type(ctx context.Context, loc dom.Locator, text string) error {
	args := m.Called(ctx, loc, text)
	return args.Error(0)
}

func (m *MockDriver) UploadFiles(ctx context.Context, loc dom.Locator, paths []string) error {
	args := m.Called(ctx, loc, paths)
	return args.Error(0)
}

func (m *MockDriver) Wait(ctx context.Context, d time.Duration) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDriver) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// -- Shared fixtures --

// mustSnapshot parses fixture markup into a snapshot.
func mustSnapshot(t *testing.T, markup, url string) *dom.Snapshot {
	t.Helper()
	snap, err := dom.ParseHTML(strings.NewReader(markup), url)
	require.NoError(t, err)
	return snap
}

// buildRefs derives the filtered tree and reference map the way the context
// builder does.
func buildRefs(t *testing.T, markup string) (*dom.Snapshot, *dom.RefMap) {
	t.Helper()
	snap := mustSnapshot(t, markup, "https://example.com")
	filtered := dom.Filter(snap.Root, dom.DefaultFilterConfig())
	return snap, dom.Assign(filtered, snap.Root)
}
