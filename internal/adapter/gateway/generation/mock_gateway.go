package generation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGateway is a deterministic Generator for offline runs and tests.
// Responses are served from a FIFO script; when the script is exhausted it
// falls back to a canned default so a full pipeline run always succeeds.
type MockGateway struct {
	mu     sync.Mutex
	script []string
	strict bool // scripted gateways error instead of falling back
}

// NewMockGateway creates a mock preloaded with responses for a full run:
// one AppSpec, one generated-file list, one empty security patch set.
func NewMockGateway() *MockGateway {
	return &MockGateway{script: defaultScript()}
}

// NewScriptedGateway creates a mock that replays the given responses in
// order and errors when asked for more. Tests use this to drive specific
// stage behavior.
func NewScriptedGateway(responses ...string) *MockGateway {
	return &MockGateway{script: responses, strict: true}
}

// Generate returns the next scripted response
func (m *MockGateway) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.script) == 0 {
		if m.strict {
			return nil, fmt.Errorf("mock generator script exhausted")
		}
		return &Response{Text: "{}", Duration: time.Millisecond}, nil
	}
	text := m.script[0]
	m.script = m.script[1:]
	return &Response{Text: text, Duration: time.Millisecond}, nil
}

// Name identifies this backend in audit records
func (m *MockGateway) Name() string {
	return "mock"
}

func defaultScript() []string {
	return []string{mockAppSpecJSON, mockFilesJSON, "[]"}
}

const mockAppSpecJSON = `{
  "name": "SampleApp",
  "description": "Offline sample application",
  "screens": [
    {"name": "Home", "description": "Landing screen", "route": "/"},
    {"name": "Detail", "description": "Item detail", "route": "/detail"}
  ],
  "navigation": {"type": "stack", "structure": [{"name": "Root", "type": "stack"}]},
  "dataModels": [
    {
      "name": "Item",
      "fields": [
        {"name": "id", "type": "uuid"},
        {"name": "title", "type": "text", "required": true}
      ]
    }
  ],
  "apiEndpoints": [
    {"method": "GET", "path": "/items", "auth": true}
  ],
  "authStrategy": "email",
  "features": ["offline sample"]
}`

const mockFilesJSON = `[
  {"path": "App.tsx", "content": "export default function App() { return null; }", "language": "tsx"},
  {"path": "src/screens/Home.tsx", "content": "export function Home() { return null; }", "language": "tsx"}
]`
