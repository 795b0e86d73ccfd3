package library

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// fakeClock lets tests pin and advance time.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *fakeClock) set(t time.Time)         { c.now = t }

// fixedRand always yields the same suffix.
type fixedRand struct{ n int }

func (r fixedRand) Intn(int) int { return r.n }

type env struct {
	storage  *MemoryStorage
	clock    *fakeClock
	catalog  *CatalogStore
	accounts *AccountStore
	config   *ConfigStore
	guard    *SessionGuard
	engine   *Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	storage := NewMemoryStorage()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	logger := log.New(io.Discard)
	rnd := fixedRand{n: 123}

	catalog, err := NewCatalogStore(storage, logger, clock, rnd)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	accounts, err := NewAccountStore(storage, logger, clock)
	if err != nil {
		t.Fatalf("new accounts: %v", err)
	}
	config, err := NewConfigStore(storage, logger)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	guard, err := NewSessionGuard(storage, logger, clock, accounts)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	engine, err := NewEngine(catalog, accounts, config, storage, logger, clock, rnd)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return &env{storage: storage, clock: clock, catalog: catalog, accounts: accounts, config: config, guard: guard, engine: engine}
}

// addMember registers a member and fails the test on a negative result.
func (e *env) addMember(t *testing.T, data MemberData) string {
	t.Helper()
	res := e.accounts.AddMember(data)
	if !res.Success {
		t.Fatalf("add member %s: %s", data.MemberID, res.Message)
	}
	return res.InitialCredential
}

// addBook intakes a book and returns its collection id. The clock advances a
// second first so generated ids stay distinct under the fixed rand source.
func (e *env) addBook(t *testing.T, title string) string {
	t.Helper()
	e.clock.advance(time.Second)
	res := e.catalog.AddBook(BookData{ISBN: "978-0-00-000000-0", Title: title, Author: "Author", Publisher: "Pub", Location: "A-1-1"})
	if !res.Success {
		t.Fatalf("add book %s: %s", title, res.Message)
	}
	return res.CollectionID
}
