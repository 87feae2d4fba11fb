// Package modal models the page's modal dialogs.
//
// Opening a modal is a two step transition. The trigger applies the root
// lock classes and "open" immediately, and a timer applies "in" once the
// CSS transition has had time to start:
//
//	Closed --Open(id)--> Opening --300ms--> Open
//	   ^                    |                 |
//	   +------Close()-------+-----------------+
//
// The Controller is the authoritative description of that contract. Script
// renders the same contract as the browser runtime that ships in the
// script bundle.
package modal

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/sitepack/internal/errors"
)

// Class names and selectors shared by the controller and the browser runtime.
const (
	RootLockClass    = "lock"
	RootModalClass   = "just-modal--default"
	OpenClass        = "open"
	InClass          = "in"
	ContainerClass   = "just-modal"
	TriggerSelector  = ".js-btn-modal"
	TriggerAttribute = "data-modal"
	CloseSelector    = ".just-modal__overlay, .js-just-modal__close"

	RevealDelay = 300 * time.Millisecond
)

// RootClasses are applied to the page root while any modal is shown.
var RootClasses = []string{RootLockClass, RootModalClass}

// State of a single modal.
type State int

const (
	Closed State = iota
	Opening
	Open
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// Document is the slice of the DOM the controller touches.
type Document interface {
	AddRootClass(classes ...string)
	RemoveRootClass(classes ...string)
	// HasElement reports whether an element with id exists.
	HasElement(id string) bool
	AddClass(id string, classes ...string)
	RemoveClass(id string, classes ...string)
	// Containers returns the ids of every modal container on the page.
	Containers() []string
}

// Controller drives modals on a Document.
type Controller struct {
	mu      sync.Mutex
	doc     Document
	clock   Clock
	states  map[string]State
	pending map[string]Timer
}

// NewController creates a controller. A nil clock uses wall-clock time.
func NewController(doc Document, clock Clock) *Controller {
	if clock == nil {
		clock = RealClock()
	}
	return &Controller{
		doc:     doc,
		clock:   clock,
		states:  make(map[string]State),
		pending: make(map[string]Timer),
	}
}

// Open reveals the modal with the given id. The root classes and "open" are
// applied before Open returns; "in" follows after RevealDelay. Opening a
// modal that is already opening or open is a no-op.
func (c *Controller) Open(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == "" || !c.doc.HasElement(id) {
		return errors.NewValidationError(errors.ErrCodeNotFound,
			fmt.Sprintf("no modal element with id %q", id))
	}
	if c.states[id] != Closed {
		return nil
	}

	c.doc.AddRootClass(RootClasses...)
	c.doc.AddClass(id, OpenClass)
	c.states[id] = Opening

	c.pending[id] = c.clock.AfterFunc(RevealDelay, func() {
		c.reveal(id)
	})
	return nil
}

func (c *Controller) reveal(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.states[id] != Opening {
		return
	}
	c.doc.AddClass(id, InClass)
	c.states[id] = Open
	delete(c.pending, id)
}

// Close hides every modal container, clears the root classes and cancels
// any reveal that has not fired yet.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, t := range c.pending {
		t.Stop()
		delete(c.pending, id)
	}

	c.doc.RemoveRootClass(RootClasses...)
	for _, id := range c.doc.Containers() {
		c.doc.RemoveClass(id, OpenClass, InClass)
	}
	for id := range c.states {
		c.states[id] = Closed
	}
}

// State returns the state of the modal with the given id.
func (c *Controller) State(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[id]
}

// Active returns the ids of modals that are opening or open, sorted.
func (c *Controller) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for id, s := range c.states {
		if s != Closed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
