// Package topics drives the guided concern drill-down: a customer
// narrows a vague worry into a concrete concern by picking from
// AI-suggested topic options level by level.
package topics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"elixer/api/internal/util"
)

// maxOptions caps how many topic choices are shown per level.
const maxOptions = 6

var ErrFlowNotFound = errors.New("draft flow not found")

// Gateway is the slice of the AI service the flow needs.
type Gateway interface {
	SuggestTopics(ctx context.Context, path, exclude []string) ([]string, error)
	DraftFromPath(ctx context.Context, path []string) (string, error)
}

// defaultRootTopics seed the first level when the gateway is down so a
// customer can always start a draft.
var defaultRootTopics = []string{
	"Health Insurance",
	"Motor Insurance",
	"Life Insurance",
	"Claim Issues",
	"Premium & Renewals",
	"Agent or Broker Issues",
}

// Flow is one in-progress drill-down. Shown accumulates every option
// offered at the current level so regeneration never repeats itself.
type Flow struct {
	ID        string
	UserID    string
	Path      []string
	Options   []string
	Shown     []string
	UpdatedAt time.Time
}

// Manager keeps active flows in memory with a TTL. Flows are
// short-lived drafting state, not durable data.
type Manager struct {
	mu      sync.Mutex
	flows   map[string]*Flow
	gateway Gateway
	ttl     time.Duration
	now     func() time.Time
}

func NewManager(gateway Gateway, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		flows:   make(map[string]*Flow),
		gateway: gateway,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Start opens a new flow with root-level options. A gateway failure
// falls back to the default root topics.
func (m *Manager) Start(ctx context.Context, userID string) Flow {
	options, err := m.gateway.SuggestTopics(ctx, nil, nil)
	if err != nil || len(options) == 0 {
		options = defaultRootTopics
	}
	options = capOptions(options)

	flow := &Flow{
		ID:        util.NewID("flow"),
		UserID:    userID,
		Options:   options,
		Shown:     append([]string(nil), options...),
		UpdatedAt: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked()
	m.flows[flow.ID] = flow
	return snapshot(flow)
}

// Select appends a topic to the path and fetches the next level of
// options. If the gateway fails the path still advances and the
// current options stay as they were, so the customer never sees an
// empty level; they can retry, regenerate, or draft from what they
// have.
func (m *Manager) Select(ctx context.Context, flowID, userID, topic string) (Flow, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Flow{}, errors.New("topic is required")
	}

	m.mu.Lock()
	flow, err := m.getLocked(flowID, userID)
	if err != nil {
		m.mu.Unlock()
		return Flow{}, err
	}
	path := append(append([]string(nil), flow.Path...), topic)
	m.mu.Unlock()

	options, genErr := m.gateway.SuggestTopics(ctx, path, nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	flow, err = m.getLocked(flowID, userID)
	if err != nil {
		return Flow{}, err
	}
	flow.Path = path
	if genErr == nil && len(options) > 0 {
		flow.Options = capOptions(options)
		flow.Shown = append([]string(nil), flow.Options...)
	}
	flow.UpdatedAt = m.now()
	return snapshot(flow), nil
}

// Regenerate replaces the current options with fresh ones, excluding
// everything already shown at this level. On gateway failure the
// current options are kept unchanged.
func (m *Manager) Regenerate(ctx context.Context, flowID, userID string) (Flow, error) {
	m.mu.Lock()
	flow, err := m.getLocked(flowID, userID)
	if err != nil {
		m.mu.Unlock()
		return Flow{}, err
	}
	path := append([]string(nil), flow.Path...)
	exclude := append([]string(nil), flow.Shown...)
	m.mu.Unlock()

	options, genErr := m.gateway.SuggestTopics(ctx, path, exclude)

	m.mu.Lock()
	defer m.mu.Unlock()
	flow, err = m.getLocked(flowID, userID)
	if err != nil {
		return Flow{}, err
	}
	if genErr != nil || len(options) == 0 {
		flow.UpdatedAt = m.now()
		return snapshot(flow), nil
	}
	flow.Options = capOptions(dedupe(options, flow.Shown))
	if len(flow.Options) == 0 {
		flow.UpdatedAt = m.now()
		return snapshot(flow), nil
	}
	flow.Shown = append(flow.Shown, flow.Options...)
	flow.UpdatedAt = m.now()
	return snapshot(flow), nil
}

// Restart clears the path and returns to root-level options.
func (m *Manager) Restart(ctx context.Context, flowID, userID string) (Flow, error) {
	m.mu.Lock()
	if _, err := m.getLocked(flowID, userID); err != nil {
		m.mu.Unlock()
		return Flow{}, err
	}
	m.mu.Unlock()

	options, genErr := m.gateway.SuggestTopics(ctx, nil, nil)
	if genErr != nil || len(options) == 0 {
		options = defaultRootTopics
	}
	options = capOptions(options)

	m.mu.Lock()
	defer m.mu.Unlock()
	flow, err := m.getLocked(flowID, userID)
	if err != nil {
		return Flow{}, err
	}
	flow.Path = nil
	flow.Options = options
	flow.Shown = append([]string(nil), options...)
	flow.UpdatedAt = m.now()
	return snapshot(flow), nil
}

// Draft produces concern text from the flow's path. A gateway failure
// degrades to text assembled from the path itself so the customer can
// still post.
func (m *Manager) Draft(ctx context.Context, flowID, userID string) (string, error) {
	m.mu.Lock()
	flow, err := m.getLocked(flowID, userID)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	path := append([]string(nil), flow.Path...)
	m.mu.Unlock()

	if len(path) == 0 {
		return "", errors.New("select at least one topic before drafting")
	}

	draft, genErr := m.gateway.DraftFromPath(ctx, path)
	if genErr != nil || strings.TrimSpace(draft) == "" {
		return "I need help with " + strings.Join(path, ", ") + ".", nil
	}
	return draft, nil
}

// Discard drops a flow once a concern has been submitted from it.
func (m *Manager) Discard(flowID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if flow, ok := m.flows[flowID]; ok && flow.UserID == userID {
		delete(m.flows, flowID)
	}
}

func (m *Manager) getLocked(flowID, userID string) (*Flow, error) {
	flow, ok := m.flows[flowID]
	if !ok || flow.UserID != userID {
		return nil, ErrFlowNotFound
	}
	if m.now().Sub(flow.UpdatedAt) > m.ttl {
		delete(m.flows, flowID)
		return nil, ErrFlowNotFound
	}
	return flow, nil
}

func (m *Manager) purgeLocked() {
	cutoff := m.now().Add(-m.ttl)
	for id, flow := range m.flows {
		if flow.UpdatedAt.Before(cutoff) {
			delete(m.flows, id)
		}
	}
}

func snapshot(flow *Flow) Flow {
	return Flow{
		ID:        flow.ID,
		UserID:    flow.UserID,
		Path:      append([]string(nil), flow.Path...),
		Options:   append([]string(nil), flow.Options...),
		Shown:     append([]string(nil), flow.Shown...),
		UpdatedAt: flow.UpdatedAt,
	}
}

func capOptions(options []string) []string {
	cleaned := make([]string, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(option)]; dup {
			continue
		}
		seen[strings.ToLower(option)] = struct{}{}
		cleaned = append(cleaned, option)
		if len(cleaned) == maxOptions {
			break
		}
	}
	return cleaned
}

func dedupe(options, shown []string) []string {
	seen := make(map[string]struct{}, len(shown))
	for _, s := range shown {
		seen[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	fresh := make([]string, 0, len(options))
	for _, option := range options {
		key := strings.ToLower(strings.TrimSpace(option))
		if _, dup := seen[key]; dup {
			continue
		}
		fresh = append(fresh, option)
	}
	return fresh
}
