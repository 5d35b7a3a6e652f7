// Package display resolves what to show for an avatar: the primary image, a fallback image
// or a generated placeholder.
package display

import (
	"strings"
	"sync"
)

type Candidate string

const (
	CandidatePrimary  Candidate = "primary"
	CandidateFallback Candidate = "fallback"
)

type LoadState string

const (
	StateLoading LoadState = "loading"
	StateLoaded  LoadState = "loaded"
	StateError   LoadState = "error"
)

type ViewKind string

const (
	ViewPrimary     ViewKind = "primary"
	ViewFallback    ViewKind = "fallback"
	ViewPlaceholder ViewKind = "placeholder"
	ViewPending     ViewKind = "pending"
)

type Props struct {
	PrimaryURI  string
	FallbackURI string
	Name        string
	Email       string
	Size        int
	Style       Style
}

// Attempt is one image load handed out by Machine.Next. Its result must be reported back
// with the same Attempt.
type Attempt struct {
	URI        string
	Candidate  Candidate
	Generation uint64
}

type View struct {
	Kind        ViewKind
	URI         string
	Placeholder Placeholder
}

type candidateState struct {
	uri      string
	state    LoadState
	inFlight bool
}

// Machine tracks load state of the primary and fallback images for one mounted avatar.
// Changing the primary URI starts a new lifecycle; results from an older lifecycle are
// dropped.
type Machine struct {
	mu         sync.Mutex
	props      Props
	generation uint64
	primary    candidateState
	fallback   candidateState
	failed     map[string]bool
}

func NewMachine(props Props) *Machine {
	m := &Machine{props: props}
	m.reset()
	return m
}

// SetPrimary replaces the primary URI. Any load still running for the previous URI becomes
// stale.
func (m *Machine) SetPrimary(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props.PrimaryURI = uri
	m.reset()
}

func (m *Machine) reset() {
	m.generation++
	m.failed = make(map[string]bool)

	primary := strings.TrimSpace(m.props.PrimaryURI)
	fallback := strings.TrimSpace(m.props.FallbackURI)
	m.primary = candidateState{uri: primary, state: StateLoading}
	m.fallback = candidateState{uri: fallback, state: StateLoading}

	// No primary means no network attempt at all.
	if primary == "" {
		m.primary.state = StateError
		m.fallback.state = StateError
	}
	if fallback == "" {
		m.fallback.state = StateError
	}
}

func (m *Machine) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

func (m *Machine) State(c Candidate) LoadState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cs := m.candidate(c); cs != nil {
		return cs.state
	}
	return StateError
}

// Next returns the next load to start, if any. The fallback is offered only once the
// primary is in error, and a URI that already failed in this lifecycle is never offered.
func (m *Machine) Next() (Attempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.primary.state == StateLoading:
		if m.primary.inFlight {
			return Attempt{}, false
		}
		m.primary.inFlight = true
		return m.attempt(CandidatePrimary), true

	case m.primary.state == StateError && m.fallback.state == StateLoading:
		if m.fallback.inFlight {
			return Attempt{}, false
		}
		if m.failed[m.fallback.uri] {
			m.fallback.state = StateError
			return Attempt{}, false
		}
		m.fallback.inFlight = true
		return m.attempt(CandidateFallback), true
	}
	return Attempt{}, false
}

// Loaded records a successful decode. It returns false when the attempt is stale or
// already settled.
func (m *Machine) Loaded(a Attempt) bool {
	return m.settle(a, StateLoaded)
}

// Failed records a load failure. It returns false when the attempt is stale or already
// settled.
func (m *Machine) Failed(a Attempt) bool {
	return m.settle(a, StateError)
}

func (m *Machine) settle(a Attempt, state LoadState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.Generation != m.generation {
		return false
	}
	c := m.candidate(a.Candidate)
	if c == nil || c.state != StateLoading || !c.inFlight || c.uri != a.URI {
		return false
	}
	c.state = state
	c.inFlight = false
	if state == StateError {
		m.failed[a.URI] = true
	}
	return true
}

func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.primary.state {
	case StateLoaded:
		return View{Kind: ViewPrimary, URI: m.primary.uri}
	case StateLoading:
		return View{Kind: ViewPending}
	}

	switch m.fallback.state {
	case StateLoaded:
		return View{Kind: ViewFallback, URI: m.fallback.uri}
	case StateLoading:
		return View{Kind: ViewPending}
	}

	return View{
		Kind:        ViewPlaceholder,
		Placeholder: NewPlaceholder(m.props.Name, m.props.Email, m.props.Style),
	}
}

func (m *Machine) Props() Props {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.props
}

func (m *Machine) attempt(c Candidate) Attempt {
	return Attempt{URI: m.candidate(c).uri, Candidate: c, Generation: m.generation}
}

func (m *Machine) candidate(c Candidate) *candidateState {
	switch c {
	case CandidatePrimary:
		return &m.primary
	case CandidateFallback:
		return &m.fallback
	}
	return nil
}
