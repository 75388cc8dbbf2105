package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/oakbyte/pulse-api/internal/dto"
)

// ErrUnknownSubjectType indicates a subject type tag with no registered resolver.
var ErrUnknownSubjectType = errors.New("unknown subject type")

// SubjectResolver loads a display summary for one subject id.
type SubjectResolver func(ctx context.Context, id string) (dto.SubjectSummary, error)

// SubjectRegistry maps the closed set of subject type tags to resolver
// functions. The set is populated once at startup, so read-side subject
// resolution is exhaustive rather than stringly-typed.
type SubjectRegistry struct {
	mu        sync.RWMutex
	resolvers map[string]SubjectResolver
}

// NewSubjectRegistry constructs an empty registry.
func NewSubjectRegistry() *SubjectRegistry {
	return &SubjectRegistry{resolvers: make(map[string]SubjectResolver)}
}

// Register binds a subject type tag to its resolver. Re-registering a tag
// replaces the previous resolver.
func (r *SubjectRegistry) Register(subjectType string, resolver SubjectResolver) {
	if subjectType == "" || resolver == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[subjectType] = resolver
}

// Known reports whether a subject type tag has a registered resolver.
func (r *SubjectRegistry) Known(subjectType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.resolvers[subjectType]
	return ok
}

// Resolve loads the summary for a subject reference. Unregistered types
// return ErrUnknownSubjectType.
func (r *SubjectRegistry) Resolve(ctx context.Context, subjectType, id string) (dto.SubjectSummary, error) {
	r.mu.RLock()
	resolver, ok := r.resolvers[subjectType]
	r.mu.RUnlock()

	if !ok {
		return dto.SubjectSummary{}, fmt.Errorf("%w: %s", ErrUnknownSubjectType, subjectType)
	}

	return resolver(ctx, id)
}

// Types returns the registered subject type tags, sorted.
func (r *SubjectRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.resolvers))
	for subjectType := range r.resolvers {
		types = append(types, subjectType)
	}
	sort.Strings(types)
	return types
}
