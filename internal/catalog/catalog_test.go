package catalog

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

type fakeRepo struct {
	data    map[string][]string
	err     error
	queries int
}

func (f *fakeRepo) FindByNames(_ context.Context, names []string) (map[string][]string, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	out := map[string][]string{}
	for _, n := range names {
		for name, versions := range f.data {
			if strings.EqualFold(name, n) {
				out[name] = append([]string(nil), versions...)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) Search(_ context.Context, term string) (map[string][]string, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	out := map[string][]string{}
	for name, versions := range f.data {
		if strings.Contains(strings.ToLower(name), strings.ToLower(term)) {
			out[name] = append([]string(nil), versions...)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListNames(_ context.Context, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	names := make([]string, 0, len(f.data))
	for name := range f.data {
		names = append(names, name)
	}
	sortStrings(names)
	if len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func (f *fakeRepo) Upsert(_ context.Context, name string, versions []string) error {
	if f.data == nil {
		f.data = map[string][]string{}
	}
	f.data[name] = append(f.data[name], versions...)
	return nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

type memCache struct{ entries map[string]map[string][]string }

func (m *memCache) Get(_ context.Context, key string) (map[string][]string, bool) {
	v, ok := m.entries[key]
	return v, ok
}

func (m *memCache) Set(_ context.Context, key string, value map[string][]string) {
	m.entries[key] = value
}

func newCatalog() *fakeRepo {
	return &fakeRepo{data: map[string][]string{
		"Google Chrome":      {"124.0.6367", "125.0.6422", "99.0.4844"},
		"Mozilla Firefox":    {"126.0", "125.0.3"},
		"Python":             {"3.9.18", "3.12.2", "3.10.13", "3.9.7"},
		"Visual Studio Code": {"1.89.1", "1.90.0"},
		"Git":                {"2.44.0", "2.45.1"},
		"GitHub Desktop":     {"3.3.12"},
	}}
}

func TestSortDescendingIsNatural(t *testing.T) {
	got := SortDescending([]string{"3.9.18", "3.12.2", "3.10.13", "3.9.7", "3.9.18", "3.9"})
	want := []string{"3.12.2", "3.10.13", "3.9.18", "3.9.7", "3.9"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SortDescending = %v, want %v", got, want)
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.10", "1.9", 1},
		{"1.0", "1.0", 0},
		{"2.0-beta", "2.0", 1},
		{"010", "9", 1},
		{"v2", "v10", -1},
	}
	for _, tc := range cases {
		if got := CompareVersions(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	svc := NewService(newCatalog(), nil, zap.NewNop())
	ctx := context.Background()

	cases := []struct {
		name        string
		item        domain.LineItem
		wantName    string
		wantVersion string
		wantMiss    bool
	}{
		{"exact latest", domain.LineItem{Software: "python"}, "Python", "3.12.2", false},
		{"dotted prefix", domain.LineItem{Software: "Python", Version: "3.9"}, "Python", "3.9.18", false},
		{"exact version", domain.LineItem{Software: "Python", Version: "3.9.7"}, "Python", "3.9.7", false},
		{"fuzzy", domain.LineItem{Software: "chrome", Version: "latest"}, "Google Chrome", "125.0.6422", false},
		{"exact beats fuzzy", domain.LineItem{Software: "git"}, "Git", "2.45.1", false},
		{"unknown version", domain.LineItem{Software: "Python", Version: "2.7"}, "", "", true},
		{"unknown software", domain.LineItem{Software: "Flibbertigibbet"}, "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sw, version, err := svc.Resolve(ctx, tc.item)
			if tc.wantMiss {
				if !errors.Is(err, domain.ErrCatalogMiss) {
					t.Fatalf("expected catalog miss, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if sw.Name != tc.wantName || version != tc.wantVersion {
				t.Fatalf("Resolve = %s %s, want %s %s", sw.Name, version, tc.wantName, tc.wantVersion)
			}
		})
	}
}

func TestFindByNamesSwallowsStoreErrors(t *testing.T) {
	svc := NewService(&fakeRepo{err: domain.ErrStoreUnavailable}, nil, zap.NewNop())
	if got := svc.FindByNames(context.Background(), []string{"git"}); len(got) != 0 {
		t.Fatalf("expected empty mapping, got %v", got)
	}
	if got := svc.FuzzySearch(context.Background(), "git"); len(got) != 0 {
		t.Fatalf("expected empty mapping, got %v", got)
	}
	if _, _, err := svc.Resolve(context.Background(), domain.LineItem{Software: "git"}); !errors.Is(err, domain.ErrCatalogMiss) {
		t.Fatalf("expected catalog miss, got %v", err)
	}
}

func TestFindByNamesUsesCache(t *testing.T) {
	repo := newCatalog()
	svc := NewService(repo, &memCache{entries: map[string]map[string][]string{}}, zap.NewNop())
	ctx := context.Background()

	first := svc.FindByNames(ctx, []string{"Git", "python"})
	second := svc.FindByNames(ctx, []string{"PYTHON", "git"})
	if repo.queries != 1 {
		t.Fatalf("expected one repository query, got %d", repo.queries)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached result differs: %v vs %v", first, second)
	}
	if first["Python"][0] != "3.12.2" {
		t.Fatalf("versions not sorted: %v", first["Python"])
	}
}

func TestEmptyResultsAreNotCached(t *testing.T) {
	repo := &fakeRepo{data: map[string][]string{}}
	cache := &memCache{entries: map[string]map[string][]string{}}
	svc := NewService(repo, cache, zap.NewNop())
	ctx := context.Background()

	if got := svc.FindByNames(ctx, []string{"Slack"}); len(got) != 0 {
		t.Fatalf("expected miss, got %v", got)
	}
	if got := svc.FuzzySearch(ctx, "sla"); len(got) != 0 {
		t.Fatalf("expected miss, got %v", got)
	}
	if len(cache.entries) != 0 {
		t.Fatalf("empty results cached: %v", cache.entries)
	}

	if err := repo.Upsert(ctx, "Slack", []string{"4.38.125"}); err != nil {
		t.Fatal(err)
	}
	if got := svc.FindByNames(ctx, []string{"slack"}); len(got["Slack"]) != 1 {
		t.Fatalf("newly seeded entry not found: %v", got)
	}
	if got := svc.FuzzySearch(ctx, "sla"); len(got["Slack"]) != 1 {
		t.Fatalf("newly seeded entry not found by search: %v", got)
	}
	if len(cache.entries) != 2 {
		t.Fatalf("expected both hits cached, got %v", cache.entries)
	}
}

func TestSuggestions(t *testing.T) {
	svc := NewService(newCatalog(), nil, zap.NewNop())
	got := svc.Suggestions(context.Background(), 3)
	want := []string{"Git", "GitHub Desktop", "Google Chrome"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Suggestions = %v, want %v", got, want)
	}
}

func TestRedisCacheUnreachableIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	cache := NewRedisCache(client, time.Minute, zap.NewNop())

	ctx := context.Background()
	cache.Set(ctx, "names:git", map[string][]string{"Git": {"2.45.1"}})
	if _, ok := cache.Get(ctx, "names:git"); ok {
		t.Fatal("expected miss when redis is unreachable")
	}
}

func TestLoadSeed(t *testing.T) {
	doc := `
software:
  - name: Google Chrome
    versions: ["125.0.6422", "124.0.6367"]
    aliases: [chrome, google chrome browser]
  - name: Python
    versions: ["3.12.2", "3.9.18"]
    aliases: [py, python3]
`
	seed, err := LoadSeed(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	aliases := seed.Aliases()
	if aliases["chrome"] != "Google Chrome" || aliases["python3"] != "Python" || aliases["python"] != "Python" {
		t.Fatalf("unexpected aliases: %v", aliases)
	}

	repo := &fakeRepo{}
	n, err := seed.Apply(context.Background(), repo)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if n != 2 || len(repo.data["Python"]) != 2 {
		t.Fatalf("unexpected seed result n=%d data=%v", n, repo.data)
	}
}

func TestLoadSeedRejectsNamelessEntry(t *testing.T) {
	if _, err := LoadSeed(strings.NewReader("software:\n  - versions: [\"1\"]\n")); err == nil {
		t.Fatal("expected error for nameless entry")
	}
	if _, err := LoadSeed(strings.NewReader("softwares: []\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
