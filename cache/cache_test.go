package cache

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/charmbracelet/folio/paginate"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testMetrics() paginate.Metrics {
	return paginate.CalculateMetrics(40, 12, paginate.DefaultLayout())
}

func entryFor(content string) Entry {
	return NewEntry(paginate.Paginate(content, testMetrics(), paginate.Dynamic))
}

func TestFingerprint(t *testing.T) {
	m := testMetrics()
	base := Fingerprint("hello", m, paginate.Dynamic)

	if got := Fingerprint("hello", m, paginate.Dynamic); got != base {
		t.Fatalf("fingerprint is not stable: %q != %q", got, base)
	}

	moved := m
	moved.Margins.Left++
	top := m
	top.Margins.Top++
	spacing := m
	spacing.LineSpacing++
	font := m
	font.FontSize++

	variants := map[string]Key{
		"content":     Fingerprint("hellO", m, paginate.Dynamic),
		"left margin": Fingerprint("hello", moved, paginate.Dynamic),
		"top margin":  Fingerprint("hello", top, paginate.Dynamic),
		"spacing":     Fingerprint("hello", spacing, paginate.Dynamic),
		"font size":   Fingerprint("hello", font, paginate.Dynamic),
		"strategy":    Fingerprint("hello", m, paginate.Compact),
	}
	for name, k := range variants {
		if k == base {
			t.Errorf("%s change did not change the key", name)
		}
	}
}

func TestGetSet(t *testing.T) {
	c := New()
	k := Key("k")
	if _, ok := c.Get(k); ok {
		t.Fatalf("expected a miss on an empty cache")
	}

	want := entryFor("one\n\ntwo")
	c.Set(k, want, 0)

	got, ok := c.Get(k)
	if !ok {
		t.Fatalf("expected a hit")
	}
	if diff := cmp.Diff(want.Result, got.Result); diff != "" {
		t.Fatalf("Get() mismatch (-want +got):\n%s", diff)
	}
	if len(got.Rendered) != got.Result.TotalPages() {
		t.Fatalf("Rendered has %d slots for %d pages", len(got.Rendered), got.Result.TotalPages())
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt was not set")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := New()
	c.Set("k", entryFor("text"), 0)

	e, _ := c.Get("k")
	e.Rendered[0] = "mutated"

	again, _ := c.Get("k")
	if again.Rendered[0] != "" {
		t.Fatalf("cache shares its rendered pages with callers")
	}
}

func TestEvictionOrder(t *testing.T) {
	c := New(WithCapacity(3))
	for _, k := range []Key{"a", "b", "c", "d"} {
		c.Set(k, entryFor(string(k)), 0)
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("oldest entry was not evicted")
	}

	// Re-setting b moves it to the back of the queue.
	c.Set("b", entryFor("b"), 0)
	c.Set("e", entryFor("e"), 0)

	if _, ok := c.Get("c"); ok {
		t.Fatalf("expected c to be evicted")
	}
	for _, k := range []Key{"b", "d", "e"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %q to survive", k)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("Len()=%d want 3", c.Len())
	}
}

func TestExpiry(t *testing.T) {
	clk := newClock()
	c := New(WithTTL(time.Minute), WithClock(clk.Now))

	c.Set("short", entryFor("short"), 0)
	c.Set("long", entryFor("long"), 5*time.Minute)
	clk.Advance(2 * time.Minute)

	if _, ok := c.Get("short"); ok {
		t.Fatalf("expired entry was returned")
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatalf("entry with a longer TTL expired early")
	}
	if c.Len() != 1 {
		t.Fatalf("expired entry was not removed, Len()=%d", c.Len())
	}
	if c.Update("short", func(*Entry) {}) {
		t.Fatalf("Update found an expired entry")
	}
}

func TestUpdate(t *testing.T) {
	c := New()
	if c.Update("missing", func(*Entry) {}) {
		t.Fatalf("Update reported a missing entry as found")
	}

	c.Set("k", entryFor("text"), 0)
	ok := c.Update("k", func(e *Entry) {
		e.Rendered[0] = "rendered"
	})
	if !ok {
		t.Fatalf("Update did not find the entry")
	}
	e, _ := c.Get("k")
	if !e.IsRendered(0) || e.Rendered[0] != "rendered" {
		t.Fatalf("update was not applied: %q", e.Rendered)
	}
}

func TestForVariant(t *testing.T) {
	e := entryFor("one\n\ntwo").ForVariant("a")
	e.Rendered[0] = "rendered for a"

	if same := e.ForVariant("a"); same.Rendered[0] != "rendered for a" {
		t.Fatalf("same variant dropped its pages: %q", same.Rendered)
	}
	other := e.ForVariant("b")
	if other.Variant != "b" || other.IsRendered(0) {
		t.Fatalf("other variant kept pages: %q (%q)", other.Rendered, other.Variant)
	}
	if diff := cmp.Diff(e.Result, other.Result); diff != "" {
		t.Fatalf("result changed with the variant (-want +got):\n%s", diff)
	}
	if e.Rendered[0] != "rendered for a" {
		t.Fatalf("ForVariant modified its receiver")
	}
}

func TestSetRendered(t *testing.T) {
	c := New()
	c.Set("k", entryFor("one\n\ntwo").ForVariant("a"), 0)

	tests := []struct {
		name    string
		key     Key
		variant string
		page    int
		want    bool
	}{
		{"stores a page", "k", "a", 0, true},
		{"keeps a rendered page", "k", "a", 0, false},
		{"rejects another variant", "k", "b", 0, false},
		{"rejects a page out of range", "k", "a", 99, false},
		{"rejects a missing entry", "missing", "a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.SetRendered(tt.key, tt.variant, tt.page, tt.name); got != tt.want {
				t.Fatalf("SetRendered()=%v want %v", got, tt.want)
			}
		})
	}

	e, _ := c.Get("k")
	if e.Rendered[0] != "stores a page" {
		t.Fatalf("page 0 = %q", e.Rendered[0])
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("a", entryFor("a"), 0)
	c.Set("b", entryFor("b"), 0)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len()=%d after Clear", c.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(WithCapacity(4))
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				k := Key(fmt.Sprintf("k%d", (i+j)%6))
				c.Set(k, entryFor(string(k)), 0)
				c.Get(k)
				c.Update(k, func(e *Entry) { e.Rendered[0] = "x" })
			}
		}()
	}
	wg.Wait()
	if c.Len() > 4 {
		t.Fatalf("Len()=%d exceeds capacity", c.Len())
	}
}

func TestSQLiteTier(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache", "pages.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	clk := newClock()
	want := entryFor("persisted\n\ncontent").ForVariant("ascii")
	want.Rendered[0] = "first page"

	first := New(WithStore(s), WithClock(clk.Now), WithTTL(time.Hour))
	first.Set("k", want, 0)

	// A fresh cache over the same store starts cold and is served from disk.
	clk.Advance(10 * time.Minute)
	second := New(WithStore(s), WithClock(clk.Now), WithTTL(time.Hour))
	got, ok := second.Get("k")
	if !ok {
		t.Fatalf("expected a store hit")
	}
	if diff := cmp.Diff(want.Result, got.Result); diff != "" {
		t.Fatalf("store round trip mismatch (-want +got):\n%s", diff)
	}
	if got.Rendered[0] != "first page" || got.Variant != "ascii" {
		t.Fatalf("rendered pages were not persisted: %q (%q)", got.Rendered, got.Variant)
	}
	if second.Len() != 1 {
		t.Fatalf("store hit was not promoted to memory")
	}

	if _, ok := second.Get("other"); ok {
		t.Fatalf("expected a miss for an unknown key")
	}

	// Entries older than the TTL are pruned when a cache opens the store.
	clk.Advance(2 * time.Hour)
	third := New(WithStore(s), WithClock(clk.Now), WithTTL(time.Hour))
	if _, ok := third.Get("k"); ok {
		t.Fatalf("expired store entry was returned")
	}
}

func TestSQLiteCorruptEntryIsMiss(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "pages.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	clk := newClock()
	if _, err := s.db.Exec(
		"INSERT INTO pages (key, created_at, entry) VALUES (?, ?, ?)",
		"bad", clk.Now().UnixNano(), []byte("not json"),
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, _, err := s.Load("bad"); err == nil {
		t.Fatalf("expected a decode error")
	}
	c := New(WithStore(s), WithClock(clk.Now))
	if _, ok := c.Get("bad"); ok {
		t.Fatalf("corrupt entry was returned")
	}
}

func TestSQLiteClear(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "pages.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	c := New(WithStore(s))
	c.Set("k", entryFor("text"), 0)
	c.Clear()

	if _, ok, err := s.Load("k"); ok || err != nil {
		t.Fatalf("store still holds the entry: ok=%v err=%v", ok, err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
