// Package fsm is a small event driven state machine. Each state has an
// action; the event an action returns selects the next state, until an
// action returns NoOp.
package fsm

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrEventRejected = errors.New("event rejected")
	ErrConfig        = errors.New("state machine config error")
)

const (
	Default StateType = ""
	NoOp    EventType = "NoOp"
)

type StateType string
type EventType string
type EventContext interface{}

type Action interface {
	Execute(eventCtx EventContext) EventType
}

// ActionFunc adapts a function to Action.
type ActionFunc func(eventCtx EventContext) EventType

func (f ActionFunc) Execute(eventCtx EventContext) EventType {
	return f(eventCtx)
}

type Events map[EventType]StateType

type State struct {
	Action Action
	Events Events
}

type States map[StateType]State

type StateMachine struct {
	Previous StateType
	Current  StateType
	States   States
	// History lists every state entered, in order.
	History []StateType
	mutex   sync.Mutex
}

// New returns a machine resting in initial.
func New(initial StateType, states States) *StateMachine {
	return &StateMachine{
		Current: initial,
		States:  states,
		History: []StateType{initial},
	}
}

// IsTerminal reports whether the current state accepts no events.
func (s *StateMachine) IsTerminal() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	state, ok := s.States[s.Current]
	return !ok || len(state.Events) == 0
}

func (s *StateMachine) getNextState(event EventType) (StateType, error) {
	if state, ok := s.States[s.Current]; ok {
		if state.Events != nil {
			if next, ok := state.Events[event]; ok {
				return next, nil
			}
		}
	}
	return Default, fmt.Errorf("next state from %q: %w", s.Current, ErrEventRejected)
}

// SendEvent moves the machine along event and keeps running actions until
// one returns NoOp.
func (s *StateMachine) SendEvent(event EventType, eventCtx EventContext) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for {
		nextState, err := s.getNextState(event)
		if err != nil {
			return fmt.Errorf("%w: %s", err, event)
		}
		state, ok := s.States[nextState]
		if !ok || state.Action == nil {
			return fmt.Errorf("%w: state %q has no action", ErrConfig, nextState)
		}
		s.Previous = s.Current
		s.Current = nextState
		s.History = append(s.History, nextState)

		nextEvent := state.Action.Execute(eventCtx)
		if nextEvent == NoOp {
			return nil
		}
		event = nextEvent
	}
}
