package bins

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/samber/lo"
)

var (
	ErrUnknownProfile = errors.New("unknown bin profile")
	ErrNoProfiles     = errors.New("no bin profiles configured")
)

const (
	Recycling = "RECYCLING"
	WetWaste  = "WET_WASTE"
	EWaste    = "E_WASTE"
)

// Profile is a named disposal policy: the detector classes a bin accepts
type Profile struct {
	Name    string `yaml:"name"`
	Key     string `yaml:"key"`
	Classes []int  `yaml:"classes"`
}

// Allows reports whether classID belongs in this bin
func (p Profile) Allows(classID int) bool {
	return lo.Contains(p.Classes, classID)
}

// DefaultProfiles returns the three stock bins selectable with keys 1, 2 and 3
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: Recycling, Key: "1", Classes: []int{39, 40, 41, 42, 43, 44, 45, 73, 24, 25, 26, 28, 27, 76, 79}},
		{Name: WetWaste, Key: "2", Classes: []int{46, 47, 48, 49, 50, 51, 52, 53, 54, 55}},
		{Name: EWaste, Key: "3", Classes: []int{63, 64, 65, 66, 67, 68, 69, 70, 62, 72}},
	}
}

// Registry holds the configured profiles and the active one. Activate may
// race with Current; the active profile is swapped atomically.
type Registry struct {
	profiles []Profile
	byName   map[string]*Profile
	active   atomic.Pointer[Profile]
}

func NewRegistry(profiles []Profile, defaultName string) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}

	r := &Registry{
		profiles: make([]Profile, len(profiles)),
		byName:   make(map[string]*Profile, len(profiles)),
	}
	for i, p := range profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d has no name", i)
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate bin profile %q", p.Name)
		}
		p.Classes = lo.Uniq(p.Classes)
		r.profiles[i] = p
		r.byName[p.Name] = &r.profiles[i]
	}

	if defaultName == "" {
		defaultName = r.profiles[0].Name
	}
	if err := r.Activate(defaultName); err != nil {
		return nil, err
	}

	return r, nil
}

// List returns the profiles in configured order
func (r *Registry) List() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Activate makes the named profile current. An unknown name leaves the
// active profile unchanged.
func (r *Registry) Activate(name string) error {
	p, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	r.active.Store(p)
	return nil
}

// Current returns the active profile
func (r *Registry) Current() Profile {
	return *r.active.Load()
}

// Resolve finds a profile by name (case-insensitive) or by hotkey
func (r *Registry) Resolve(nameOrKey string) (Profile, error) {
	want := strings.TrimSpace(nameOrKey)
	p, ok := lo.Find(r.profiles, func(p Profile) bool {
		return strings.EqualFold(p.Name, want) || (p.Key != "" && p.Key == want)
	})
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, nameOrKey)
	}
	return p, nil
}

// Tracked returns the sorted union of all profiles' classes
func (r *Registry) Tracked() []int {
	all := lo.Uniq(lo.FlatMap(r.profiles, func(p Profile, _ int) []int {
		return p.Classes
	}))
	sort.Ints(all)
	return all
}
