// Package registry maps host editors to highlighting sessions and owns the
// active bundle they are bound to.
package registry

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dshills/colorer/internal/bundle"
	"github.com/dshills/colorer/internal/host"
	"github.com/dshills/colorer/internal/rules"
	"github.com/dshills/colorer/internal/session"
)

// EventType is the type of registry event.
type EventType int

const (
	// EventAttached is emitted when a session is created for an editor.
	EventAttached EventType = iota
	// EventDetached is emitted when a session is removed.
	EventDetached
	// EventCommitted is emitted after a new bundle was committed.
	EventCommitted
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventAttached:
		return "attached"
	case EventDetached:
		return "detached"
	case EventCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Event describes a registry change.
type Event struct {
	Type     EventType
	Editor   host.EditorID
	Sessions int
}

// EventHandler handles registry events. Handlers must not call back into
// the Registry. Panics in handlers are recovered.
type EventHandler func(Event)

// Registry tracks one session per open editor.
type Registry struct {
	mu sync.RWMutex

	editors  host.Editors
	sessions map[host.EditorID]*session.Session
	// explicit file type choices by editor, kept across Commit
	choices  map[host.EditorID]string
	active   *bundle.Bundle
	enabled  bool
	defaults session.Options

	handlers []EventHandler
	log      *logrus.Entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// WithDefaults sets the display flags new sessions start with.
func WithDefaults(opts session.Options) Option {
	return func(r *Registry) {
		r.defaults = opts
	}
}

// New creates an empty, disabled registry.
func New(editors host.Editors, opts ...Option) *Registry {
	r := &Registry{
		editors:  editors,
		sessions: make(map[host.EditorID]*session.Session),
		choices:  make(map[host.EditorID]string),
		defaults: session.DefaultOptions(),
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether sessions may be attached.
func (r *Registry) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// SetEnabled switches attaching on or off. Disabling does not detach
// existing sessions; use DetachAll.
func (r *Registry) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Active returns the active bundle, nil when none is committed.
func (r *Registry) Active() *bundle.Bundle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Defaults returns the display flags applied to new sessions.
func (r *Registry) Defaults() session.Options {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// Attach returns the session of id, creating it when the registry is
// enabled and has an active bundle. The file type is the user's earlier
// explicit choice, else the detected type, else the bundle default.
func (r *Registry) Attach(id host.EditorID) (*session.Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		r.mu.Unlock()
		return s, true
	}
	if !r.enabled || r.active == nil {
		r.mu.Unlock()
		return nil, false
	}
	s = r.create(id)
	if s == nil {
		r.mu.Unlock()
		return nil, false
	}
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.emit(Event{Type: EventAttached, Editor: id, Sessions: n})
	return s, true
}

// create builds a session for id against the active bundle.
// Must be called with mu held.
func (r *Registry) create(id host.EditorID) *session.Session {
	info, err := r.editors.Info(id)
	if err != nil {
		r.log.WithError(err).WithField("editor", id).Warn("cannot describe editor")
		return nil
	}

	b := r.active
	s := session.New(id, b, r.defaults)
	db := b.Database()

	if name, ok := r.choices[id]; ok {
		if ft := db.Type(name); ft != nil {
			err := s.SetFileType(ft, true)
			if err == nil {
				return s
			}
			r.log.WithError(err).WithField("type", name).Warn("chosen file type failed to compile")
		}
		delete(r.choices, id)
	}

	ft := db.Detect(info.FileName, info.FirstLines)
	if ft == nil {
		ft = b.DefaultType()
	}
	if err := s.SetFileType(ft, false); err != nil {
		r.log.WithError(err).WithField("type", ft.Name).Warn("file type failed to compile, using default")
		if err := s.SetFileType(b.DefaultType(), false); err != nil {
			r.log.WithError(err).Error("default file type failed to compile")
			return nil
		}
	}
	return s
}

// Lookup returns the session of id without creating one.
func (r *Registry) Lookup(id host.EditorID) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Detach removes the session of id and forgets its file type choice.
// With clean, the session's caches are released first.
func (r *Registry) Detach(id host.EditorID, clean bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		if clean {
			s.Clean()
		}
		delete(r.sessions, id)
	}
	delete(r.choices, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if ok {
		r.emit(Event{Type: EventDetached, Editor: id, Sessions: n})
	}
}

// DetachAll removes every session.
func (r *Registry) DetachAll(clean bool) {
	for _, id := range r.IDs() {
		r.Detach(id, clean)
	}
}

// SetFileType binds ft to the session of id as an explicit choice.
func (r *Registry) SetFileType(id host.EditorID, ft *rules.FileType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return host.ErrNoEditor
	}
	if err := s.SetFileType(ft, true); err != nil {
		return err
	}
	r.choices[id] = ft.Name
	return nil
}

// ClearFileType drops the explicit choice of id and re-detects its type.
func (r *Registry) ClearFileType(id host.EditorID) error {
	r.mu.Lock()
	delete(r.choices, id)
	_, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return host.ErrNoEditor
	}
	r.Detach(id, true)
	if _, ok := r.Attach(id); !ok {
		return host.ErrNoEditor
	}
	return nil
}

// BroadcastSettingsChange pushes display flags to every session and makes
// them the defaults for new ones. File types and bundles are untouched.
func (r *Registry) BroadcastSettingsChange(opts session.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = opts
	for _, s := range r.sessions {
		s.SetOptions(opts)
	}
}

// Commit makes b the active bundle and recreates every live session
// against it. Display flags are kept, and explicit file type choices are
// kept when the new database still has the type.
func (r *Registry) Commit(b *bundle.Bundle) {
	r.mu.Lock()
	r.active = b
	ids := r.sortedIDs()
	for _, id := range ids {
		old := r.sessions[id]
		old.Clean()
		delete(r.sessions, id)
		if !r.enabled {
			continue
		}
		s := r.create(id)
		if s == nil {
			continue
		}
		s.SetOptions(old.Options())
		r.sessions[id] = s
	}
	n := len(r.sessions)
	r.mu.Unlock()

	r.emit(Event{Type: EventCommitted, Sessions: n})
}

// Drop clears the active bundle.
func (r *Registry) Drop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = nil
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the editor ids with a session, in ascending order.
func (r *Registry) IDs() []host.EditorID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedIDs()
}

func (r *Registry) sortedIDs() []host.EditorID {
	ids := make([]host.EditorID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OnEvent adds an event handler and returns a function removing it.
func (r *Registry) OnEvent(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}
	r.mu.Lock()
	r.handlers = append(r.handlers, handler)
	index := len(r.handlers) - 1
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if index < len(r.handlers) {
			r.handlers[index] = nil
		}
	}
}

// emit sends an event to all handlers outside the lock.
func (r *Registry) emit(event Event) {
	r.mu.RLock()
	handlers := make([]EventHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.log.WithField("panic", p).Error("registry event handler panicked")
				}
			}()
			handler(event)
		}()
	}
}
