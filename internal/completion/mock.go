package completion

import (
	"context"
	"fmt"
	"sync"

	"github.com/reviewloop/insight-engine/internal/analysis"
)

// MockExecutor is a scripted executor for tests. Responses and failures are
// registered per analysis type; unregistered types return a minimal valid
// payload for the type.
type MockExecutor struct {
	mu       sync.Mutex
	payloads map[analysis.Type]analysis.Payload
	failures map[analysis.Type]error
	failOnce map[analysis.Type]error
	Requests []Request
}

// NewMockExecutor creates an empty scripted executor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		payloads: make(map[analysis.Type]analysis.Payload),
		failures: make(map[analysis.Type]error),
		failOnce: make(map[analysis.Type]error),
	}
}

// Respond registers a payload returned for the given type.
func (m *MockExecutor) Respond(t analysis.Type, p analysis.Payload) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[t] = p
	return m
}

// Fail registers a permanent failure for the given type.
func (m *MockExecutor) Fail(t analysis.Type, err error) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[t] = err
	return m
}

// FailOnce registers a failure consumed by the next call for the given type.
func (m *MockExecutor) FailOnce(t analysis.Type, err error) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOnce[t] = err
	return m
}

// Execute returns the scripted outcome for the request's type.
func (m *MockExecutor) Execute(ctx context.Context, req Request) (*Result, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)

	if err, ok := m.failOnce[req.Type]; ok {
		delete(m.failOnce, req.Type)
		m.mu.Unlock()
		return nil, err
	}
	if err, ok := m.failures[req.Type]; ok {
		m.mu.Unlock()
		return nil, err
	}
	payload, ok := m.payloads[req.Type]
	m.mu.Unlock()

	if !ok {
		payload = defaultPayload(req.Type)
	}

	raw, err := analysis.EncodePayload(req.Type, payload)
	if err != nil {
		return nil, fmt.Errorf("mock payload: %w", err)
	}

	return &Result{
		Data:    raw,
		Payload: payload,
		Model:   "mock-completion-model",
	}, nil
}

// RequestsFor returns the recorded requests for one type.
func (m *MockExecutor) RequestsFor(t analysis.Type) []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Request
	for _, r := range m.Requests {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

func defaultPayload(t analysis.Type) analysis.Payload {
	switch t {
	case analysis.TypeProductDescription:
		return analysis.ProductDescriptionResult{Summary: "mock summary"}
	case analysis.TypeSentiment:
		return analysis.SentimentResult{Overall: "positive", Score: 0.5}
	case analysis.TypeVoiceOfCustomer:
		return analysis.VoiceOfCustomerResult{}
	case analysis.TypeFourWMatrix:
		return analysis.FourWMatrixResult{}
	case analysis.TypeJTBD:
		return analysis.JTBDResult{}
	case analysis.TypeSTP:
		return analysis.STPResult{Positioning: "mock"}
	case analysis.TypeSWOT:
		return analysis.SWOTResult{Strengths: []string{"mock"}}
	case analysis.TypeCustomerJourney:
		return analysis.CustomerJourneyResult{}
	case analysis.TypePersonas:
		return analysis.PersonasResult{Personas: []analysis.Persona{{Name: "Mock", Description: "mock persona"}}}
	case analysis.TypeCompetition:
		return analysis.CompetitionResult{}
	case analysis.TypeSmartCompetition:
		return analysis.SmartCompetitionResult{Summary: "mock"}
	case analysis.TypeStrategicRecommendations:
		return analysis.StrategicRecommendationsResult{}
	case analysis.TypeRatingAnalysis:
		return analysis.RatingAnalysisResult{Average: 4.0}
	default:
		return analysis.ProductDescriptionResult{Summary: "mock"}
	}
}

var _ Executor = (*MockExecutor)(nil)
