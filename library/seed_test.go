package library

import "testing"

func TestSeedDemoData(t *testing.T) {
	e := newEnv(t)

	if err := SeedDemoData(e.catalog, e.accounts, e.config, e.engine); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(e.catalog.Books()) != 3 || len(e.accounts.Members()) != 4 || len(e.engine.Loans()) != 1 {
		t.Fatalf("unexpected seed volume: %d books, %d members, %d loans",
			len(e.catalog.Books()), len(e.accounts.Members()), len(e.engine.Loans()))
	}

	// Seeding again is a no-op.
	if err := SeedDemoData(e.catalog, e.accounts, e.config, e.engine); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if len(e.catalog.Books()) != 3 {
		t.Fatalf("seed must be idempotent")
	}

	// Seeded members authenticate with their generated initial credential.
	res := e.guard.Authenticate("2021001", GenerateInitialCredential("2021001"))
	if !res.Success {
		t.Fatalf("seeded member should authenticate: %s", res.Message)
	}

	// The seeded loan keeps the status invariant intact.
	loan, ok := e.engine.FindActiveLoan("TS20260101130000002")
	if !ok {
		t.Fatalf("seeded active loan missing")
	}
	book, _ := e.catalog.GetByCollectionID(loan.CollectionID)
	if book.Status != BookLoaned {
		t.Fatalf("seeded loaned book should be Loaned, got %s", book.Status)
	}
}
