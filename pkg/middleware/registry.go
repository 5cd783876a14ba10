package middleware

import (
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// SyncRule is a project-supplied read-dispatch override (spec §6's
// `syncRules`): paths matching Pattern are handled by the middleware named
// Use, bypassing the registry's normal first-match-wins scan.
type SyncRule struct {
	Pattern string
	Use     string
}

// Registry holds the ordered middleware list plus any project-supplied
// sync rule overrides, and implements the read/write dispatch algorithms
// from spec §4.5.
type Registry struct {
	middlewares []*Middleware
	byID        map[string]*Middleware
	syncRules   []SyncRule
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Middleware)}
}

// Register appends a middleware to the registry in dispatch-priority order
// (earlier registrations win read-dispatch ties and write-dispatch
// priority ties).
func (r *Registry) Register(m *Middleware) {
	r.middlewares = append(r.middlewares, m)
	r.byID[m.ID] = m
}

// SetSyncRules installs the project's read-dispatch overrides, checked
// before the registry's normal scan.
func (r *Registry) SetSyncRules(rules []SyncRule) {
	r.syncRules = rules
}

// ByID looks up a middleware by its stable id, used to honor a node's
// recorded MiddlewareContext/MiddlewareID on syncback.
func (r *Registry) ByID(id string) (*Middleware, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// DispatchRead selects the middleware that should read path, per spec
// §4.5: sync rules first, then first include∧¬exclude match among
// registered middlewares, respecting each middleware's directory/file-only
// constraint.
func (r *Registry) DispatchRead(path string, isDir bool) (*Middleware, error) {
	for _, rule := range r.syncRules {
		matched, err := doublestar.Match(rule.Pattern, path)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid sync rule pattern %q: %v", rojoerrors.ErrMalformedProject, rule.Pattern, err)
		}
		if matched {
			if m, ok := r.byID[rule.Use]; ok {
				return m, nil
			}
			return nil, fmt.Errorf("%w: sync rule references unknown middleware %q", rojoerrors.ErrMalformedProject, rule.Use)
		}
	}

	for _, m := range r.middlewares {
		if m.DirectoriesOnly && !isDir {
			continue
		}
		if m.FilesOnly && isDir {
			continue
		}
		if !matchesGlobs(m, path) {
			continue
		}
		return m, nil
	}

	return nil, nil
}

func matchesGlobs(m *Middleware, path string) bool {
	included := len(m.IncludeGlobs) == 0
	for _, glob := range m.IncludeGlobs {
		if ok, _ := doublestar.Match(glob, path); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, glob := range m.ExcludeGlobs {
		if ok, _ := doublestar.Match(glob, path); ok {
			return false
		}
	}
	return true
}

// candidate pairs a middleware with its computed priority, preserving
// original registration order for stable tie-breaking.
type candidate struct {
	middleware *Middleware
	rank       int
	order      int
}

// DispatchWrite selects the middleware to use for syncing className back
// to disk, per spec §4.5: query every middleware for a priority, sort
// descending, prefer previous when it's among the candidates at the top
// rank (stabilizes round-trips).
func (r *Registry) DispatchWrite(className string, hasDescendants bool, previous *Middleware) (*Middleware, error) {
	var candidates []candidate
	for i, m := range r.middlewares {
		rank, ok := m.Priority(className, hasDescendants)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{middleware: m, rank: rank, order: i})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no middleware can produce class %q", rojoerrors.ErrUnresolvedValue, className)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank > candidates[j].rank
		}
		return candidates[i].order < candidates[j].order
	})

	topRank := candidates[0].rank
	if previous != nil {
		for _, c := range candidates {
			if c.rank != topRank {
				break
			}
			if c.middleware.ID == previous.ID {
				return c.middleware, nil
			}
		}
	}

	return candidates[0].middleware, nil
}
