package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/repository"
)

// Lookup is the read side of the catalog used by the workflow.
type Lookup interface {
	FindByNames(ctx context.Context, names []string) map[string][]string
	FuzzySearch(ctx context.Context, term string) map[string][]string
	Resolve(ctx context.Context, item domain.LineItem) (domain.Software, string, error)
	Suggestions(ctx context.Context, limit int) []string
}

// Service resolves free text software names against the catalog repository.
type Service struct {
	repo   repository.CatalogRepository
	cache  Cache
	logger *zap.Logger
}

// NewService wires the catalog service.
func NewService(repo repository.CatalogRepository, cache Cache, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NopCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// FindByNames returns exact, case insensitive matches with versions newest first.
// Store failures yield an empty mapping.
func (s *Service) FindByNames(ctx context.Context, names []string) map[string][]string {
	keys := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			keys = append(keys, n)
		}
	}
	if len(keys) == 0 {
		return map[string][]string{}
	}
	sort.Strings(keys)
	cacheKey := "names:" + strings.Join(keys, "|")
	if cached, ok := s.cache.Get(ctx, cacheKey); ok {
		return cached
	}

	found, err := s.repo.FindByNames(ctx, keys)
	if err != nil {
		s.logger.Warn("catalog lookup failed", zap.Strings("names", keys), zap.Error(err))
		return map[string][]string{}
	}
	out := sortAll(found)
	if len(out) > 0 {
		s.cache.Set(ctx, cacheKey, out)
	}
	return out
}

// FuzzySearch returns partial matches for a single term.
func (s *Service) FuzzySearch(ctx context.Context, term string) map[string][]string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return map[string][]string{}
	}
	cacheKey := "search:" + term
	if cached, ok := s.cache.Get(ctx, cacheKey); ok {
		return cached
	}

	found, err := s.repo.Search(ctx, term)
	if err != nil {
		s.logger.Warn("catalog search failed", zap.String("term", term), zap.Error(err))
		return map[string][]string{}
	}
	out := sortAll(found)
	if len(out) > 0 {
		s.cache.Set(ctx, cacheKey, out)
	}
	return out
}

// Resolve maps a line item to a catalog entry and concrete version.
func (s *Service) Resolve(ctx context.Context, item domain.LineItem) (domain.Software, string, error) {
	item = item.Normalized()
	name := strings.TrimSpace(item.Software)
	if name == "" {
		return domain.Software{}, "", domain.ErrCatalogMiss
	}

	matches := s.FindByNames(ctx, []string{name})
	if len(matches) == 0 {
		matches = s.FuzzySearch(ctx, name)
	}
	canonical, ok := bestMatch(matches, name)
	if !ok {
		return domain.Software{}, "", fmt.Errorf("%w: %s", domain.ErrCatalogMiss, name)
	}

	sw := domain.Software{Name: canonical, Versions: matches[canonical]}
	version, ok := pickVersion(sw.Versions, item.Version)
	if !ok {
		return sw, "", fmt.Errorf("%w: %s version %s", domain.ErrCatalogMiss, canonical, item.Version)
	}
	return sw, version, nil
}

// Suggestions lists catalog names alphabetically for users whose request matched nothing.
func (s *Service) Suggestions(ctx context.Context, limit int) []string {
	names, err := s.repo.ListNames(ctx, limit)
	if err != nil {
		s.logger.Warn("catalog suggestions failed", zap.Error(err))
		return nil
	}
	return names
}

func sortAll(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for name, versions := range in {
		out[name] = SortDescending(versions)
	}
	return out
}

// bestMatch prefers an exact name, then a prefix match, then the shortest name.
func bestMatch(matches map[string][]string, term string) (string, bool) {
	if len(matches) == 0 {
		return "", false
	}
	term = strings.ToLower(term)
	names := make([]string, 0, len(matches))
	for name := range matches {
		names = append(names, name)
	}
	rank := func(name string) int {
		lower := strings.ToLower(name)
		switch {
		case lower == term:
			return 0
		case strings.HasPrefix(lower, term):
			return 1
		default:
			return 2
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})
	return names[0], true
}
