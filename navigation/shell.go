package navigation

import (
	"sync"

	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/jrsteele09/secure-health/internal/utils"
	"github.com/rs/zerolog/log"
)

// Route is a screen on the navigation stack with its parameters.
type Route struct {
	Screen Screen
	Photos []string // PhotoDetail only: the photos to review
}

// LeaveGuard is asked before a route is removed from the stack. Returning an error
// keeps it. Pushing another route on top does not remove it.
type LeaveGuard func(from Route) error

// Shell is a stack navigator over a Graph.
type Shell struct {
	view SignedIn

	lock   sync.RWMutex
	graph  Graph
	stack  []Route
	guards []LeaveGuard // parallel to stack
}

// NewShell mounts the graph for the current sign-in state.
func NewShell(view SignedIn) *Shell {
	s := &Shell{view: view}
	s.Remount()
	return s
}

// Remount rebuilds the graph from the current sign-in state and resets the stack to its
// initial screen. It returns true when the group changed.
func (s *Shell) Remount() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	prev := s.graph
	s.graph = Build(s.view)
	s.stack = []Route{{Screen: s.graph.Initial()}}
	s.guards = []LeaveGuard{nil}
	changed := prev.screens == nil || prev.signedIn != s.graph.signedIn
	log.Debug().Bool("signed_in", s.graph.signedIn).Str("initial", string(s.graph.Initial())).Msg("navigation mounted")
	return changed
}

func (s *Shell) Graph() Graph {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.graph
}

// Current returns the route on top of the stack.
func (s *Shell) Current() Route {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.stack[len(s.stack)-1]
}

// Depth is the number of routes on the stack.
func (s *Shell) Depth() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.stack)
}

// SetGuard installs the guard of the current route, replacing any previous one.
func (s *Shell) SetGuard(g LeaveGuard) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.guards[len(s.guards)-1] = g
}

// Navigate pushes screen if the mounted graph has it.
func (s *Shell) Navigate(screen Screen) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.graph.Has(screen) {
		return errors.Wrapf(errors.ErrUnknownScreen, "%s", screen)
	}
	return s.push(Route{Screen: screen})
}

// ShowPhotoDetail pushes the photo review screen. It is only reachable from TakePhoto.
func (s *Shell) ShowPhotoDetail(photos []string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.stack[len(s.stack)-1].Screen != TakePhoto {
		return errors.Wrapf(errors.ErrUnknownScreen, "%s from %s", PhotoDetail, s.stack[len(s.stack)-1].Screen)
	}
	return s.push(Route{Screen: PhotoDetail, Photos: utils.CloneSlice(photos)})
}

// Back pops the current route. It returns false at the initial screen.
func (s *Shell) Back() (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.stack) == 1 {
		return false, nil
	}
	if err := s.popTo(len(s.stack) - 1); err != nil {
		return false, err
	}
	return true, nil
}

// PopToRoot returns to the initial screen.
func (s *Shell) PopToRoot() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.popTo(1)
}

// Reset returns to the initial screen without asking any guard, for flows that have
// completed the work the guards protect.
func (s *Shell) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stack = s.stack[:1]
	s.guards = s.guards[:1]
}

func (s *Shell) push(r Route) error {
	s.stack = append(s.stack, r)
	s.guards = append(s.guards, nil)
	return nil
}

// popTo shrinks the stack to depth routes, asking each removed route's guard top down.
func (s *Shell) popTo(depth int) error {
	for i := len(s.stack) - 1; i >= depth; i-- {
		if g := s.guards[i]; g != nil {
			if err := g(s.stack[i]); err != nil {
				return err
			}
		}
	}
	s.stack = s.stack[:depth]
	s.guards = s.guards[:depth]
	return nil
}
