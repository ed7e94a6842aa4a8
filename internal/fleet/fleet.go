package fleet

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrProfileNotFound is returned when no profile matches an id.
var ErrProfileNotFound = errors.New("profile not found")

// Fleet is the set of profiles known to this process.
type Fleet struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	onChange []func()
}

// New creates an empty fleet.
func New() *Fleet {
	return &Fleet{profiles: make(map[string]*Profile)}
}

// Get returns a copy of the profile with the given id.
func (f *Fleet) Get(id string) (*Profile, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p, ok := f.profiles[NormalizeID(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return p.Clone(), nil
}

// Resolve returns the canonical id of the profile matching id whose chat channel
// binding admits channelID.
func (f *Fleet) Resolve(id, channelID string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p, ok := f.profiles[NormalizeID(id)]
	if !ok || !p.AllowsChannel(channelID) {
		return "", false
	}
	return p.ID, true
}

// List returns copies of all profiles sorted by id.
func (f *Fleet) List() []*Profile {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Len returns the number of profiles.
func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.profiles)
}

// Put adds or replaces a profile.
func (f *Fleet) Put(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	f.profiles[p.Key()] = p.Clone()
	callbacks := append([]func(){}, f.onChange...)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	return nil
}

// Remove deletes a profile. Removing an unknown id is not an error.
func (f *Fleet) Remove(id string) {
	f.mu.Lock()
	_, existed := f.profiles[NormalizeID(id)]
	delete(f.profiles, NormalizeID(id))
	callbacks := append([]func(){}, f.onChange...)
	f.mu.Unlock()

	if existed {
		for _, cb := range callbacks {
			cb()
		}
	}
}

// Replace swaps the whole profile set at once.
func (f *Fleet) Replace(profiles []*Profile) {
	next := make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		next[p.Key()] = p.Clone()
	}

	f.mu.Lock()
	f.profiles = next
	callbacks := append([]func(){}, f.onChange...)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// OnChange registers a callback invoked after the profile set changed.
func (f *Fleet) OnChange(cb func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = append(f.onChange, cb)
}
