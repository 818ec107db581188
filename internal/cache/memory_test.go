package cache

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/tbourn/go-docsearch-backend/internal/domain"
)

func results(title string, score float64) []domain.SearchResult {
	return []domain.SearchResult{{Title: title, Score: score}}
}

func TestKey_FilterAndLimitSensitivity(t *testing.T) {
	base := Key("slack", 5, domain.SearchFilters{})

	if Key("slack", 5, domain.SearchFilters{}) != base {
		t.Fatalf("key not deterministic")
	}
	if Key(" slack ", 5, domain.SearchFilters{}) != base {
		t.Fatalf("surrounding whitespace must not change the key")
	}
	if Key("slack", 10, domain.SearchFilters{}) == base {
		t.Fatalf("limit must participate in the key")
	}
	if Key("email", 5, domain.SearchFilters{}) == base {
		t.Fatalf("query must participate in the key")
	}
	if Key("slack", 5, domain.SearchFilters{SectionType: "integration"}) == base {
		t.Fatalf("section filter must participate in the key")
	}
	if Key("slack", 5, domain.SearchFilters{NodeType: "Slack"}) == base {
		t.Fatalf("node filter must participate in the key")
	}
	if Key("slack", 5, domain.SearchFilters{MinScore: 0.5, HasMinScore: true}) == base {
		t.Fatalf("min score filter must participate in the key")
	}
	// An unset min score threshold is not the same as an explicit zero.
	if Key("slack", 5, domain.SearchFilters{HasMinScore: true}) == base {
		t.Fatalf("explicit zero min score must differ from unset")
	}
}

func TestMemory_HitAndMiss(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10, time.Minute)

	if _, ok := m.Get(ctx, "slack", 5, domain.SearchFilters{}); ok {
		t.Fatalf("expected miss on empty cache")
	}

	want := results("Slack Node", 2.5)
	m.Set(ctx, "slack", 5, domain.SearchFilters{}, want)

	got, ok := m.Get(ctx, "slack", 5, domain.SearchFilters{})
	if !ok {
		t.Fatalf("expected hit")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cached results differ: %+v vs %+v", got, want)
	}

	// Different limit or filters are distinct entries.
	if _, ok := m.Get(ctx, "slack", 10, domain.SearchFilters{}); ok {
		t.Fatalf("limit change should miss")
	}
	if _, ok := m.Get(ctx, "slack", 5, domain.SearchFilters{NodeType: "Slack"}); ok {
		t.Fatalf("filter change should miss")
	}

	st := m.Stats(ctx)
	if st.Hits != 1 || st.Misses != 3 {
		t.Fatalf("stats = %+v; want 1 hit, 3 misses", st)
	}
	if st.Size != 1 || st.MaxSize != 10 {
		t.Fatalf("occupancy = %+v", st)
	}
	if ratio := st.HitRatio; ratio != 0.25 {
		t.Fatalf("hit ratio = %v; want 0.25", ratio)
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10, 20*time.Millisecond)

	m.Set(ctx, "slack", 5, domain.SearchFilters{}, results("Slack Node", 1))
	if _, ok := m.Get(ctx, "slack", 5, domain.SearchFilters{}); !ok {
		t.Fatalf("expected hit before expiry")
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := m.Get(ctx, "slack", 5, domain.SearchFilters{}); ok {
		t.Fatalf("expected miss after TTL")
	}
	// Expired entries are removed in place.
	if st := m.Stats(ctx); st.Size != 0 {
		t.Fatalf("expired entry still resident: %+v", st)
	}
}

func TestMemory_EvictsOldestAtCapacity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3, time.Minute)

	for i := 0; i < 3; i++ {
		m.Set(ctx, fmt.Sprintf("query-%d", i), 5, domain.SearchFilters{}, results(fmt.Sprintf("doc-%d", i), 1))
		time.Sleep(2 * time.Millisecond) // distinct insertion times
	}
	m.Set(ctx, "query-3", 5, domain.SearchFilters{}, results("doc-3", 1))

	if _, ok := m.Get(ctx, "query-0", 5, domain.SearchFilters{}); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
	for i := 1; i <= 3; i++ {
		if _, ok := m.Get(ctx, fmt.Sprintf("query-%d", i), 5, domain.SearchFilters{}); !ok {
			t.Fatalf("entry %d unexpectedly evicted", i)
		}
	}
	if st := m.Stats(ctx); st.Size != 3 {
		t.Fatalf("size = %d; want 3", st.Size)
	}
}

func TestMemory_OverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Minute)

	m.Set(ctx, "a", 5, domain.SearchFilters{}, results("a1", 1))
	m.Set(ctx, "b", 5, domain.SearchFilters{}, results("b1", 1))
	// Rewriting an existing key at capacity must not evict anything.
	m.Set(ctx, "a", 5, domain.SearchFilters{}, results("a2", 2))

	got, ok := m.Get(ctx, "a", 5, domain.SearchFilters{})
	if !ok || got[0].Title != "a2" {
		t.Fatalf("overwrite lost: %+v ok=%v", got, ok)
	}
	if _, ok := m.Get(ctx, "b", 5, domain.SearchFilters{}); !ok {
		t.Fatalf("sibling entry evicted by overwrite")
	}
}

func TestMemory_ClearResetsEverything(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10, time.Minute)

	m.Set(ctx, "slack", 5, domain.SearchFilters{}, results("Slack Node", 1))
	m.Get(ctx, "slack", 5, domain.SearchFilters{})
	m.Get(ctx, "missing", 5, domain.SearchFilters{})

	m.Clear(ctx)

	st := m.Stats(ctx)
	if st.Size != 0 || st.Hits != 0 || st.Misses != 0 || st.HitRatio != 0 {
		t.Fatalf("stats after clear = %+v", st)
	}
	if _, ok := m.Get(ctx, "slack", 5, domain.SearchFilters{}); ok {
		t.Fatalf("entry survived clear")
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(50, time.Minute)

	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				q := fmt.Sprintf("q-%d-%d", w, i%10)
				m.Set(ctx, q, 5, domain.SearchFilters{}, results(q, 1))
				m.Get(ctx, q, 5, domain.SearchFilters{})
				m.Stats(ctx)
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		<-done
	}
}
