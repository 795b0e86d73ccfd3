package library

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestComputeDueDateScenario(t *testing.T) {
	e := newEnv(t)
	borrowed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	due := e.engine.ComputeDueDate(IdentityStudent, borrowed)
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !due.Equal(want) {
		t.Fatalf("student due date: want %v, got %v", want, due)
	}
	due = e.engine.ComputeDueDate(IdentityStaff, borrowed)
	if want := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC); !due.Equal(want) {
		t.Fatalf("staff due date: want %v, got %v", want, due)
	}
}

func TestComputeOverdueDays(t *testing.T) {
	e := newEnv(t)
	e.clock.set(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	due := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := e.engine.ComputeOverdueDays(due); got != 8 {
		t.Fatalf("overdue days: want 8, got %d", got)
	}
	// Partial days round up.
	if got := e.engine.ComputeOverdueDays(e.clock.Now().Add(-time.Hour)); got != 1 {
		t.Fatalf("partial day: want 1, got %d", got)
	}
	// Not yet due stays negative.
	if got := e.engine.ComputeOverdueDays(e.clock.Now().AddDate(0, 0, 3)); got >= 0 {
		t.Fatalf("future due date should be negative, got %d", got)
	}
}

func TestBorrowAndReturnFlow(t *testing.T) {
	e := newEnv(t)
	e.addMember(t, MemberData{MemberID: "2021001", Name: "Alice", Identity: IdentityStudent, CardNumber: "C2021001"})
	id1 := e.addBook(t, "First")
	id2 := e.addBook(t, "Second")

	res := e.engine.BorrowBooks("C2021001", []string{id1, id2}, "desk")
	if !res.Success {
		t.Fatalf("borrow: %s", res.Message)
	}
	if len(res.Records) != 2 {
		t.Fatalf("want 2 loan records, got %d", len(res.Records))
	}
	if want := e.clock.Now().AddDate(0, 0, 60); res.DueAt == nil || !res.DueAt.Equal(want) {
		t.Fatalf("shared due date: want %v, got %v", want, res.DueAt)
	}

	// Exactly one active loan per copy, and the copy is Loaned.
	for _, id := range []string{id1, id2} {
		loan, ok := e.engine.FindActiveLoan(id)
		if !ok || loan.Status != LoanActive {
			t.Fatalf("active loan missing for %s", id)
		}
		book, _ := e.catalog.GetByCollectionID(id)
		if book.Status != BookLoaned {
			t.Fatalf("book %s should be Loaned", id)
		}
	}

	ret := e.engine.ReturnBook(id1, "desk")
	if !ret.Success || ret.Late || ret.OverdueDays != 0 {
		t.Fatalf("on-time return: %+v", ret)
	}
	book, _ := e.catalog.GetByCollectionID(id1)
	if book.Status != BookAvailable {
		t.Fatalf("returned book should be Available")
	}
	if _, ok := e.engine.FindActiveLoan(id1); ok {
		t.Fatalf("loan should no longer be active")
	}
	if ret.Record.ReturnedAt == nil || ret.Record.ReturnOperator != "desk" {
		t.Fatalf("return fields not recorded: %+v", ret.Record)
	}
}

func TestDoubleBorrowFails(t *testing.T) {
	e := newEnv(t)
	e.addMember(t, MemberData{MemberID: "2021001", Name: "Alice", Identity: IdentityStudent, CardNumber: "C2021001"})
	e.addMember(t, MemberData{MemberID: "2021002", Name: "Bob", Identity: IdentityStudent, CardNumber: "C2021002"})
	id := e.addBook(t, "Popular")

	if res := e.engine.BorrowBooks("C2021001", []string{id}, "desk"); !res.Success {
		t.Fatalf("first borrow: %s", res.Message)
	}
	second := e.engine.BorrowBooks("C2021002", []string{id}, "desk")
	if second.Success || !strings.Contains(second.Message, "not available") {
		t.Fatalf("second borrow must fail with availability: %+v", second.Result)
	}
	if second.DueAt != nil {
		t.Fatalf("failed borrow must not carry a due date")
	}
}

func TestValidateBorrowReportsEveryFailure(t *testing.T) {
	e := newEnv(t)
	e.addMember(t, MemberData{MemberID: "2021001", Name: "Alice", Identity: IdentityStudent, CardNumber: "C2021001"})
	e.addMember(t, MemberData{MemberID: "2021002", Name: "Bob", Identity: IdentityStudent, CardNumber: "C2021002"})
	loaned := e.addBook(t, "Loaned")
	ok := e.addBook(t, "Fine")
	e.engine.BorrowBooks("C2021002", []string{loaned}, "desk")

	if res := e.engine.ValidateBorrow("C-none", []string{ok}); res.Success || !strings.Contains(res.Message, "no member matches") {
		t.Fatalf("unknown card: %+v", res.Result)
	}

	res := e.engine.ValidateBorrow("C2021001", []string{loaned, "TS-missing", ok})
	if res.Success {
		t.Fatalf("validation should fail as a whole")
	}
	if !strings.Contains(res.Message, "not available") || !strings.Contains(res.Message, "book not found") {
		t.Fatalf("every per-book failure should be reported: %s", res.Message)
	}
	if len(res.Checks) != 3 {
		t.Fatalf("want 3 checks, got %d", len(res.Checks))
	}
	if !res.Checks[2].OK {
		t.Fatalf("the valid book should pass its own check")
	}

	// The item cap from configuration is not enforced by validation.
	many := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		many = append(many, e.addBook(t, "Bulk"))
	}
	if res := e.engine.ValidateBorrow("C2021001", many); !res.Success {
		t.Fatalf("six items should pass validation: %s", res.Message)
	}
}

func TestOverdueMemberBlockedFromAllBorrowing(t *testing.T) {
	e := newEnv(t)
	e.addMember(t, MemberData{MemberID: "2021001", Name: "Alice", Identity: IdentityStudent, CardNumber: "C2021001"})
	overdueBook := e.addBook(t, "Kept Too Long")
	freshBook := e.addBook(t, "Brand New")

	if res := e.engine.BorrowBooks("C2021001", []string{overdueBook}, "desk"); !res.Success {
		t.Fatalf("setup borrow: %s", res.Message)
	}
	e.clock.advance(61 * 24 * time.Hour)

	check := e.engine.CheckMemberOverdue("C2021001")
	if !check.HasOverdue || len(check.Loans) != 1 {
		t.Fatalf("overdue check: %+v", check)
	}

	res := e.engine.ValidateBorrow("C2021001", []string{freshBook})
	if res.Success || !strings.Contains(res.Message, "overdue") {
		t.Fatalf("overdue member must be blocked entirely: %+v", res.Result)
	}
}

func TestReturnWithoutActiveLoan(t *testing.T) {
	e := newEnv(t)
	id := e.addBook(t, "Untouched")
	before, _ := e.catalog.GetByCollectionID(id)
	updatedAt := before.UpdatedAt

	res := e.engine.ReturnBook(id, "desk")
	if res.Success || !strings.Contains(res.Message, "no active loan") {
		t.Fatalf("expected no-active-loan failure: %+v", res.Result)
	}
	after, _ := e.catalog.GetByCollectionID(id)
	if after.Status != BookAvailable || !after.UpdatedAt.Equal(updatedAt) || len(after.StatusHistory) != 0 {
		t.Fatalf("failed return must not mutate the book")
	}
	if len(e.engine.Loans()) != 0 {
		t.Fatalf("failed return must not create records")
	}
}

func TestLateReturnScenario(t *testing.T) {
	e := newEnv(t)
	e.clock.set(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e.addMember(t, MemberData{MemberID: "2021001", Name: "Alice", Identity: IdentityStudent, CardNumber: "C2021001"})
	id := e.addBook(t, "Late Book")

	e.clock.set(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if res := e.engine.BorrowBooks("C2021001", []string{id}, "desk"); !res.Success {
		t.Fatalf("borrow: %s", res.Message)
	}

	e.clock.set(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	ret := e.engine.ReturnBook(id, "desk")
	if !ret.Success {
		t.Fatalf("return: %s", ret.Message)
	}
	if !ret.Late || ret.OverdueDays != 8 {
		t.Fatalf("want 8 overdue days, got %+v", ret)
	}
	if ret.Record.OverdueDays != 8 || ret.Record.ReturnOperator != "desk" {
		t.Fatalf("loan record not updated: %+v", ret.Record)
	}
}

func TestBookStatusInvariant(t *testing.T) {
	e := newEnv(t)
	e.addMember(t, MemberData{MemberID: "2021001", Name: "Alice", Identity: IdentityStudent, CardNumber: "C2021001"})
	ids := []string{e.addBook(t, "A"), e.addBook(t, "B"), e.addBook(t, "C")}

	e.engine.BorrowBooks("C2021001", ids[:2], "desk")
	e.engine.ReturnBook(ids[0], "desk")

	for _, b := range e.catalog.Books() {
		_, active := e.engine.FindActiveLoan(b.CollectionID)
		switch b.Status {
		case BookAvailable:
			if active {
				t.Fatalf("available book %s has an active loan", b.CollectionID)
			}
		case BookLoaned:
			if !active {
				t.Fatalf("loaned book %s has no active loan", b.CollectionID)
			}
		default:
			t.Fatalf("book %s has invalid status %s", b.CollectionID, b.Status)
		}
	}
}

func TestQueryLoans(t *testing.T) {
	e := newEnv(t)
	e.addMember(t, MemberData{MemberID: "2021001", Name: "Alice", Identity: IdentityStudent, CardNumber: "C2021001"})
	id1 := e.addBook(t, "A")
	id2 := e.addBook(t, "B")
	e.engine.BorrowBooks("C2021001", []string{id1, id2}, "desk")
	e.engine.ReturnBook(id1, "desk")

	if got := e.engine.QueryLoans(LoanFilter{CardNumber: "C2021001"}); len(got) != 2 {
		t.Fatalf("card filter: want 2, got %d", len(got))
	}
	if got := e.engine.QueryLoans(LoanFilter{Status: LoanActive}); len(got) != 1 || got[0].CollectionID != id2 {
		t.Fatalf("status filter mismatch")
	}
	if got := e.engine.QueryLoans(LoanFilter{CardNumber: "C-none"}); len(got) != 0 {
		t.Fatalf("unknown card should match nothing")
	}
}

func TestStatistics(t *testing.T) {
	e := newEnv(t)
	e.addMember(t, MemberData{MemberID: "2021001", Name: "Alice", Identity: IdentityStudent, CardNumber: "C2021001"})
	id1 := e.addBook(t, "Hit")
	id2 := e.addBook(t, "Slow")

	// Borrow the first book twice, the second once.
	e.engine.BorrowBooks("C2021001", []string{id1}, "desk")
	e.engine.ReturnBook(id1, "desk")
	e.engine.BorrowBooks("C2021001", []string{id1, id2}, "desk")

	stats := e.engine.StatusStatistics()
	if stats[BookLoaned] != 2 || stats[BookAvailable] != 0 {
		t.Fatalf("status statistics: %+v", stats)
	}

	top := e.engine.TopBorrowedBooks(5)
	if len(top) != 2 {
		t.Fatalf("want 2 rows, got %d", len(top))
	}
	if top[0].Title != "Hit" || top[0].BorrowCount != 2 {
		t.Fatalf("ranking wrong: %+v", top[0])
	}
	if top[0].Percentage != 66 || top[1].Percentage != 33 {
		t.Fatalf("percentages wrong: %+v", top)
	}
}

// failingStorage flips to error mode to exercise persistence-failure paths.
type failingStorage struct {
	*MemoryStorage
	fail bool
}

func (f *failingStorage) Save(key, value string) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryStorage.Save(key, value)
}

func TestBorrowSurfacesPersistenceFailure(t *testing.T) {
	e := newEnv(t)
	fs := &failingStorage{MemoryStorage: e.storage}
	e.catalog.storage = fs
	e.engine.storage = fs

	e.addMember(t, MemberData{MemberID: "2021001", Name: "Alice", Identity: IdentityStudent, CardNumber: "C2021001"})
	id := e.addBook(t, "Doomed")

	fs.fail = true
	res := e.engine.BorrowBooks("C2021001", []string{id}, "desk")
	if res.Success || !strings.Contains(res.Message, "persistence failed") {
		t.Fatalf("expected persistence failure result: %+v", res.Result)
	}
}
