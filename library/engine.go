package library

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Engine orchestrates borrowing and returning. It owns the loan record
// collection and flips catalog status as a side effect; it never mutates
// member records.
type Engine struct {
	catalog  *CatalogStore
	accounts *AccountStore
	config   *ConfigStore
	storage  Storage
	logger   *log.Logger
	clock    Clock
	rand     RandSource
	loans    []*LoanRecord
}

// NewEngine restores the loan snapshot and returns the engine. The stores
// are injected handles, constructed once at process start.
func NewEngine(catalog *CatalogStore, accounts *AccountStore, config *ConfigStore, storage Storage, logger *log.Logger, clock Clock, rnd RandSource) (*Engine, error) {
	loans, err := restoreSlot[[]*LoanRecord](storage, logger, slotLoans)
	if err != nil {
		return nil, fmt.Errorf("restore loans: %w", err)
	}
	return &Engine{
		catalog:  catalog,
		accounts: accounts,
		config:   config,
		storage:  storage,
		logger:   logger,
		clock:    clock,
		rand:     rnd,
		loans:    loans,
	}, nil
}

func (e *Engine) persist() error {
	return persistSlot(e.storage, slotLoans, e.loans)
}

// ComputeDueDate adds the identity class's loan period to the borrow time.
func (e *Engine) ComputeDueDate(identity IdentityClass, borrowedAt time.Time) time.Time {
	return borrowedAt.AddDate(0, 0, e.config.GetLoanDays(identity))
}

// ComputeOverdueDays reports whole days past due, rounded up. The result is
// negative while the loan is not yet due.
func (e *Engine) ComputeOverdueDays(dueAt time.Time) int {
	diff := e.clock.Now().Sub(dueAt)
	return int(math.Ceil(diff.Hours() / 24))
}

// CheckMemberOverdue scans the card's active loans for any past their due
// date.
func (e *Engine) CheckMemberOverdue(cardNumber string) OverdueCheck {
	now := e.clock.Now()
	var overdue []*LoanRecord
	for _, loan := range e.loans {
		if loan.CardNumber == cardNumber && loan.Status == LoanActive && now.After(loan.DueAt) {
			overdue = append(overdue, loan)
		}
	}
	return OverdueCheck{HasOverdue: len(overdue) > 0, Loans: overdue}
}

// FindActiveLoan returns the active loan for a collection id, if any. At
// most one exists at any time.
func (e *Engine) FindActiveLoan(collectionID string) (*LoanRecord, bool) {
	for _, loan := range e.loans {
		if loan.CollectionID == collectionID && loan.Status == LoanActive {
			return loan, true
		}
	}
	return nil, false
}

// ValidateBorrow checks member eligibility and every requested book. A
// member with any overdue active loan is blocked from all new borrowing. The
// per-loan item cap from configuration is intentionally not checked here;
// the observed policy leaves it unenforced.
func (e *Engine) ValidateBorrow(cardNumber string, collectionIDs []string) BorrowValidation {
	member, ok := e.accounts.FindByCardNumber(cardNumber)
	if !ok {
		return BorrowValidation{Result: failure("no member matches the given card number")}
	}

	if overdue := e.CheckMemberOverdue(cardNumber); overdue.HasOverdue {
		return BorrowValidation{Result: failure(fmt.Sprintf("member has %d overdue loan(s), borrowing is blocked", len(overdue.Loans)))}
	}

	checks := make([]BookValidation, 0, len(collectionIDs))
	var books []*BookRecord
	var failures []string
	for _, id := range collectionIDs {
		book, found := e.catalog.GetByCollectionID(id)
		switch {
		case !found:
			checks = append(checks, BookValidation{CollectionID: id, Message: "book not found"})
			failures = append(failures, fmt.Sprintf("%s: book not found", id))
		case book.Status != BookAvailable:
			msg := fmt.Sprintf("book is not available (current status: %s)", book.Status)
			checks = append(checks, BookValidation{CollectionID: id, Message: msg})
			failures = append(failures, fmt.Sprintf("%s: %s", id, msg))
		default:
			checks = append(checks, BookValidation{CollectionID: id, OK: true})
			books = append(books, book)
		}
	}

	if len(failures) > 0 {
		return BorrowValidation{Result: failure(strings.Join(failures, "\n")), Checks: checks}
	}
	return BorrowValidation{Result: success("eligible to borrow"), Member: member, Books: books, Checks: checks}
}

// BorrowBooks validates the request, then creates one active loan per book
// and flips each book to Loaned. All mutations are staged and committed in
// memory together before the owning collections are persisted; a persistence
// failure after the in-memory commit is surfaced as a distinct result.
func (e *Engine) BorrowBooks(cardNumber string, collectionIDs []string, operator string) BorrowResult {
	validation := e.ValidateBorrow(cardNumber, collectionIDs)
	if !validation.Success {
		return BorrowResult{Result: validation.Result}
	}

	member := validation.Member
	borrowedAt := e.clock.Now()
	dueAt := e.ComputeDueDate(member.Identity, borrowedAt)

	records := make([]*LoanRecord, 0, len(validation.Books))
	for _, book := range validation.Books {
		records = append(records, &LoanRecord{
			LoanID:           loanID(e.clock, e.rand),
			CardNumber:       member.CardNumber,
			BorrowerName:     member.Name,
			BorrowerIdentity: member.Identity,
			MemberID:         member.MemberID,
			CollectionID:     book.CollectionID,
			BookTitle:        book.Title,
			BookAuthor:       book.Author,
			BorrowedAt:       borrowedAt,
			DueAt:            dueAt,
			Status:           LoanActive,
			Operator:         operator,
		})
	}

	// Commit all staged mutations in memory, then persist both collections.
	e.loans = append(e.loans, records...)
	for _, book := range validation.Books {
		e.catalog.applyStatus(book, BookLoaned, operator)
	}

	if err := e.catalog.persist(); err != nil {
		return BorrowResult{Result: failure(fmt.Sprintf("persistence failed: %v", err))}
	}
	if err := e.persist(); err != nil {
		return BorrowResult{Result: failure(fmt.Sprintf("persistence failed: %v", err))}
	}
	return BorrowResult{Result: success("borrow recorded"), Records: records, DueAt: &dueAt}
}

// ReturnBook closes the active loan for a collection id, records overdue
// days (clamped to zero for reporting), and flips the book back to
// Available. Nothing is mutated when no active loan exists.
func (e *Engine) ReturnBook(collectionID, operator string) ReturnResult {
	loan, ok := e.FindActiveLoan(collectionID)
	if !ok {
		return ReturnResult{Result: failure("no active loan found for this book")}
	}

	overdueDays := e.ComputeOverdueDays(loan.DueAt)
	clamped := overdueDays
	if clamped < 0 {
		clamped = 0
	}
	now := e.clock.Now()

	loan.Status = LoanReturned
	loan.ReturnedAt = &now
	loan.OverdueDays = clamped
	loan.ReturnOperator = operator

	if book, found := e.catalog.GetByCollectionID(collectionID); found {
		e.catalog.applyStatus(book, BookAvailable, operator)
	}

	if err := e.catalog.persist(); err != nil {
		return ReturnResult{Result: failure(fmt.Sprintf("persistence failed: %v", err))}
	}
	if err := e.persist(); err != nil {
		return ReturnResult{Result: failure(fmt.Sprintf("persistence failed: %v", err))}
	}

	msg := "return recorded"
	if overdueDays > 0 {
		msg = fmt.Sprintf("book returned %d day(s) overdue", overdueDays)
	}
	return ReturnResult{Result: success(msg), OverdueDays: clamped, Late: overdueDays > 0, Record: loan}
}

// LoanFilter narrows a loan query. Blank fields are ignored.
type LoanFilter struct {
	CardNumber string     `json:"card_number"`
	Status     LoanStatus `json:"status"`
}

// QueryLoans returns every loan record matching the filter, newest first.
func (e *Engine) QueryLoans(filter LoanFilter) []*LoanRecord {
	var results []*LoanRecord
	for _, loan := range e.loans {
		if filter.CardNumber != "" && loan.CardNumber != filter.CardNumber {
			continue
		}
		if filter.Status != "" && loan.Status != filter.Status {
			continue
		}
		results = append(results, loan)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].BorrowedAt.After(results[j].BorrowedAt)
	})
	return results
}

// Loans returns all loan records.
func (e *Engine) Loans() []*LoanRecord { return e.loans }

// StatusStatistics counts catalog books per status.
func (e *Engine) StatusStatistics() map[BookStatus]int {
	stats := make(map[BookStatus]int)
	for _, b := range e.catalog.Books() {
		stats[b.Status]++
	}
	return stats
}

// BookBorrowStat is one row of the top-borrowed report.
type BookBorrowStat struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	BorrowCount int    `json:"borrow_count"`
	Percentage  int    `json:"percentage"`
}

// TopBorrowedBooks ranks titles by total borrow count. Percentages are
// relative to the total across the returned rows.
func (e *Engine) TopBorrowedBooks(limit int) []BookBorrowStat {
	type key struct{ title, author string }
	counts := make(map[key]int)
	for _, loan := range e.loans {
		counts[key{loan.BookTitle, loan.BookAuthor}]++
	}

	stats := make([]BookBorrowStat, 0, len(counts))
	for k, n := range counts {
		stats = append(stats, BookBorrowStat{Title: k.title, Author: k.author, BorrowCount: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].BorrowCount != stats[j].BorrowCount {
			return stats[i].BorrowCount > stats[j].BorrowCount
		}
		return stats[i].Title < stats[j].Title
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}

	total := 0
	for _, s := range stats {
		total += s.BorrowCount
	}
	if total > 0 {
		for i := range stats {
			stats[i].Percentage = stats[i].BorrowCount * 100 / total
		}
	}
	return stats
}
