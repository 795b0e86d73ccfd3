package library

import "time"

// Demo data for bootstrapping a fresh environment. Each populate call is
// idempotent: it does nothing when the store already holds records.

var seedTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// PopulateIfEmpty seeds a handful of demo books.
func (c *CatalogStore) PopulateIfEmpty() error {
	if len(c.books) > 0 {
		return nil
	}
	demo := []*BookRecord{
		{
			CollectionID: "TS20260101120000001",
			ISBN:         "978-0-262-03384-8",
			Title:        "Introduction to Algorithms",
			Author:       "Thomas H. Cormen",
			Publisher:    "MIT Press",
			Location:     "A-3-2",
			Status:       BookAvailable,
		},
		{
			CollectionID: "TS20260101130000002",
			ISBN:         "978-0-13-516630-7",
			Title:        "Core Java Volume I",
			Author:       "Cay S. Horstmann",
			Publisher:    "Pearson",
			Location:     "A-5-1",
			Status:       BookLoaned,
		},
		{
			CollectionID: "TS20260101140000003",
			ISBN:         "978-0-13-409266-9",
			Title:        "Computer Systems: A Programmer's Perspective",
			Author:       "Randal E. Bryant",
			Publisher:    "Pearson",
			Location:     "A-3-3",
			Status:       BookAvailable,
		},
	}
	for _, b := range demo {
		b.CreatedAt = seedTime
		b.UpdatedAt = seedTime
	}
	c.books = demo
	return c.persist()
}

// PopulateIfEmpty seeds demo members, including an admin operator account.
func (a *AccountStore) PopulateIfEmpty() error {
	if len(a.members) > 0 {
		return nil
	}
	demo := []*MemberRecord{
		{MemberID: "admin", Name: "Administrator", Identity: IdentityStaff, CardNumber: "C0001", Role: RoleAdmin},
		{MemberID: "2021001", Name: "Alice Chen", Identity: IdentityStudent, CardNumber: "C2021001", Role: RoleMember},
		{MemberID: "2021002", Name: "Bob Liu", Identity: IdentityStudent, CardNumber: "C2021002", Role: RoleMember},
		{MemberID: "T001", Name: "Prof. Wang", Identity: IdentityStaff, CardNumber: "CT001", Role: RoleMember},
	}
	for _, m := range demo {
		m.CredentialHash = HashCredential(GenerateInitialCredential(m.MemberID))
		m.Status = AccountNormal
		m.CreatedAt = seedTime
	}
	a.members = demo
	return a.persist()
}

// PopulateIfEmpty seeds one active loan matching the loaned demo book.
func (e *Engine) PopulateIfEmpty() error {
	if len(e.loans) > 0 {
		return nil
	}
	borrowed := time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC)
	e.loans = []*LoanRecord{
		{
			LoanID:           "BR20251220120000001",
			CardNumber:       "C2021001",
			BorrowerName:     "Alice Chen",
			BorrowerIdentity: IdentityStudent,
			MemberID:         "2021001",
			CollectionID:     "TS20260101130000002",
			BookTitle:        "Core Java Volume I",
			BookAuthor:       "Cay S. Horstmann",
			BorrowedAt:       borrowed,
			DueAt:            borrowed.AddDate(0, 0, 60),
			Status:           LoanActive,
			Operator:         "system",
		},
	}
	return e.persist()
}

// SeedDemoData populates every store that is still empty.
func SeedDemoData(catalog *CatalogStore, accounts *AccountStore, config *ConfigStore, engine *Engine) error {
	if err := catalog.PopulateIfEmpty(); err != nil {
		return err
	}
	if err := accounts.PopulateIfEmpty(); err != nil {
		return err
	}
	if err := config.PopulateIfEmpty(); err != nil {
		return err
	}
	return engine.PopulateIfEmpty()
}
