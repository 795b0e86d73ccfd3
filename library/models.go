package library

import "time"

// BookStatus is the circulation state of a physical copy.
type BookStatus string

const (
	BookAvailable BookStatus = "Available"
	BookLoaned    BookStatus = "Loaned"
)

// IdentityClass determines which loan period applies to a borrower.
type IdentityClass string

const (
	IdentityStaff   IdentityClass = "Staff"
	IdentityStudent IdentityClass = "Student"
)

// Role gates downstream authorization; the engine itself only records it.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleMember Role = "Member"
)

// LoanStatus marks whether a loan record is still open.
type LoanStatus string

const (
	LoanActive   LoanStatus = "Active"
	LoanReturned LoanStatus = "Returned"
)

// AccountStatus is carried on member records; only Normal is assigned today.
type AccountStatus string

const AccountNormal AccountStatus = "Normal"

// StatusChange is one entry in a book's status history.
type StatusChange struct {
	Status    BookStatus `json:"status"`
	Operator  string     `json:"operator"`
	Timestamp time.Time  `json:"timestamp"`
}

// BookRecord represents a single physical copy in the catalog.
// Status only ever moves Available->Loaned on borrow and back on return.
type BookRecord struct {
	CollectionID  string         `json:"collection_id"`
	ISBN          string         `json:"isbn"`
	Title         string         `json:"title"`
	Author        string         `json:"author"`
	Publisher     string         `json:"publisher"`
	Location      string         `json:"location"`
	Status        BookStatus     `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	StatusHistory []StatusChange `json:"status_history,omitempty"`
}

// MemberRecord represents a registered borrower. MemberID and CardNumber are
// each globally unique across all members.
type MemberRecord struct {
	MemberID       string        `json:"member_id"`
	Name           string        `json:"name"`
	Identity       IdentityClass `json:"identity"`
	CardNumber     string        `json:"card_number"`
	CredentialHash string        `json:"credential_hash"`
	Role           Role          `json:"role"`
	Status         AccountStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// LoanRecord snapshots borrower and book details at borrow time so the record
// stays meaningful even if the source records change later. DueAt is fixed at
// creation and never recomputed.
type LoanRecord struct {
	LoanID           string        `json:"loan_id"`
	CardNumber       string        `json:"card_number"`
	BorrowerName     string        `json:"borrower_name"`
	BorrowerIdentity IdentityClass `json:"borrower_identity"`
	MemberID         string        `json:"member_id"`
	CollectionID     string        `json:"collection_id"`
	BookTitle        string        `json:"book_title"`
	BookAuthor       string        `json:"book_author"`
	BorrowedAt       time.Time     `json:"borrowed_at"`
	DueAt            time.Time     `json:"due_at"`
	ReturnedAt       *time.Time    `json:"returned_at,omitempty"`
	Status           LoanStatus    `json:"status"`
	Operator         string        `json:"operator"`
	OverdueDays      int           `json:"overdue_days"`
	ReturnOperator   string        `json:"return_operator,omitempty"`
}

// PolicyConfig holds the tunable circulation policy values.
type PolicyConfig struct {
	StaffLoanDays   int `json:"staff_loan_days"`
	StudentLoanDays int `json:"student_loan_days"`
	MaxItemsPerLoan int `json:"max_items_per_loan"`
}

// DefaultPolicy returns the built-in policy values.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		StaffLoanDays:   90,
		StudentLoanDays: 60,
		MaxItemsPerLoan: 5,
	}
}

// LockoutState tracks failed authentication attempts for one identifier.
// Once FailureCount reaches three, LockedAt is set and authentication is
// rejected until the lockout window elapses.
type LockoutState struct {
	FailureCount int        `json:"failure_count"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
}

// Result is the outcome every business operation reports. Expected negative
// conditions (not found, not eligible, duplicate) are results, not errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func failure(msg string) Result { return Result{Success: false, Message: msg} }
func success(msg string) Result { return Result{Success: true, Message: msg} }

// AddBookResult carries the generated collection id of a new book.
type AddBookResult struct {
	Result
	CollectionID string `json:"collection_id,omitempty"`
}

// AddMemberResult carries the plaintext initial credential exactly once, for
// out-of-band delivery. It is never persisted in the clear.
type AddMemberResult struct {
	Result
	InitialCredential string `json:"initial_credential,omitempty"`
}

// ResetCredentialResult carries the regenerated plaintext credential once.
type ResetCredentialResult struct {
	Result
	InitialCredential string        `json:"initial_credential,omitempty"`
	MemberName        string        `json:"member_name,omitempty"`
	Identity          IdentityClass `json:"identity,omitempty"`
}

// BookValidation is the per-book outcome inside a borrow validation.
type BookValidation struct {
	CollectionID string `json:"collection_id"`
	OK           bool   `json:"ok"`
	Message      string `json:"message,omitempty"`
}

// BorrowValidation reports member eligibility plus every per-book check.
type BorrowValidation struct {
	Result
	Member *MemberRecord    `json:"member,omitempty"`
	Books  []*BookRecord    `json:"books,omitempty"`
	Checks []BookValidation `json:"checks,omitempty"`
}

// BorrowResult carries the created loan records and their shared due date.
// DueAt is set only on success so failed borrows serialize without a zero
// timestamp.
type BorrowResult struct {
	Result
	Records []*LoanRecord `json:"records,omitempty"`
	DueAt   *time.Time    `json:"due_at,omitempty"`
}

// ReturnResult reports overdue days (clamped to zero) and whether the return
// was late.
type ReturnResult struct {
	Result
	OverdueDays int         `json:"overdue_days"`
	Late        bool        `json:"late"`
	Record      *LoanRecord `json:"record,omitempty"`
}

// OverdueCheck lists a member's currently overdue active loans.
type OverdueCheck struct {
	HasOverdue bool          `json:"has_overdue"`
	Loans      []*LoanRecord `json:"loans,omitempty"`
}

// LockCheck reports lock state with remaining minutes rounded up.
type LockCheck struct {
	IsLocked         bool `json:"is_locked"`
	RemainingMinutes int  `json:"remaining_minutes"`
}

// FailureReport is returned after recording a failed authentication.
type FailureReport struct {
	Count            int  `json:"count"`
	IsLocked         bool `json:"is_locked"`
	RemainingMinutes int  `json:"remaining_minutes"`
}

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	Result
	Member *MemberRecord `json:"member,omitempty"`
	Role   Role          `json:"role,omitempty"`
}
