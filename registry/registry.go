// Package registry maps unique handles to live sessions.
package registry

import (
	"sort"
	"sync"

	"github.com/iguagile/iguagile-tictactoe/id"
	"github.com/pkg/errors"
)

// Availability gates new challenges.
type Availability int

// Availabilities
const (
	Available Availability = iota
	InGame
)

func (a Availability) String() string {
	if a == InGame {
		return "in_game"
	}
	return "available"
}

// Registry errors.
var (
	ErrNameTaken         = errors.New("name already taken")
	ErrSessionRegistered = errors.New("session already registered")
	ErrUserNotFound      = errors.New("user not found")
)

// User is one registered handle.
type User struct {
	Name         string
	Session      id.Session
	Availability Availability
}

// Registry is the single source of truth for who is online.
// Both indices always hold the same set of users.
type Registry struct {
	byName    map[string]*User
	bySession map[id.Session]*User
	*sync.RWMutex
}

// New is Registry constructed.
func New() *Registry {
	return &Registry{
		byName:    make(map[string]*User),
		bySession: make(map[id.Session]*User),
		RWMutex:   &sync.RWMutex{},
	}
}

// Register binds name to session with Available state. Names compare exactly.
func (r *Registry) Register(name string, session id.Session) error {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.byName[name]; ok {
		return errors.Wrap(ErrNameTaken, name)
	}
	if _, ok := r.bySession[session]; ok {
		return ErrSessionRegistered
	}

	u := &User{Name: name, Session: session, Availability: Available}
	r.byName[name] = u
	r.bySession[session] = u
	return nil
}

// Unregister removes the user bound to session and returns it.
func (r *Registry) Unregister(session id.Session) (User, bool) {
	r.Lock()
	defer r.Unlock()

	u, ok := r.bySession[session]
	if !ok {
		return User{}, false
	}

	delete(r.bySession, session)
	delete(r.byName, u.Name)
	return *u, true
}

// FindByName returns a copy of the user holding name.
func (r *Registry) FindByName(name string) (User, bool) {
	r.RLock()
	defer r.RUnlock()

	u, ok := r.byName[name]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// FindBySession returns a copy of the user bound to session.
func (r *Registry) FindBySession(session id.Session) (User, bool) {
	r.RLock()
	defer r.RUnlock()

	u, ok := r.bySession[session]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// SetAvailability updates the state of the named user.
func (r *Registry) SetAvailability(name string, a Availability) error {
	r.Lock()
	defer r.Unlock()

	u, ok := r.byName[name]
	if !ok {
		return errors.Wrap(ErrUserNotFound, name)
	}
	u.Availability = a
	return nil
}

// List returns a sorted snapshot of every registered name.
func (r *Registry) List() []string {
	r.RLock()
	defer r.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Users returns a snapshot of every user sorted by name.
func (r *Registry) Users() []User {
	r.RLock()
	defer r.RUnlock()

	users := make([]User, 0, len(r.byName))
	for _, u := range r.byName {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users
}

// Count returns the number of registered users.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.byName)
}
