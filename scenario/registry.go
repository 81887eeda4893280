package scenario

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// ErrScenarioNotFound is returned when no registered scenario matches.
var ErrScenarioNotFound = errors.New("scenario not found")

// Registry holds validated scenarios indexed by name and version.
// It is safe for concurrent use; registered scenarios are treated as
// immutable.
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]map[string]*Scenario // name -> version -> scenario
}

// NewRegistry creates an empty scenario registry.
func NewRegistry() *Registry {
	return &Registry{
		scenarios: make(map[string]map[string]*Scenario),
	}
}

// Register adds a scenario under its name and version. The version must be
// valid semver so Latest can order releases. Re-registering the same
// name/version replaces the previous entry.
func (r *Registry) Register(sc *Scenario) error {
	if sc == nil || sc.Name == "" {
		return fmt.Errorf("scenario must have a name")
	}
	if _, err := semver.NewVersion(sc.Version); err != nil {
		return fmt.Errorf("scenario %q has invalid version %q: %w", sc.Name, sc.Version, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	versions, ok := r.scenarios[sc.Name]
	if !ok {
		versions = make(map[string]*Scenario)
		r.scenarios[sc.Name] = versions
	}
	versions[sc.Version] = sc
	return nil
}

// Get returns the scenario with the exact name and version.
func (r *Registry) Get(name, version string) (*Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if sc, ok := r.scenarios[name][version]; ok {
		return sc, nil
	}
	return nil, fmt.Errorf("%w: %s@%s", ErrScenarioNotFound, name, version)
}

// Latest returns the highest-versioned scenario registered under name.
func (r *Registry) Latest(name string) (*Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.scenarios[name]
	if !ok || len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, name)
	}

	var best *Scenario
	var bestVer *semver.Version
	for verStr, sc := range versions {
		ver, err := semver.NewVersion(verStr)
		if err != nil {
			continue
		}
		if bestVer == nil || ver.GreaterThan(bestVer) {
			best, bestVer = sc, ver
		}
	}
	return best, nil
}

// Names returns the names of all registered scenarios.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	return names
}
