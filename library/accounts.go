package library

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/charmbracelet/log"
)

// HashCredential obscures a plaintext credential with an unsalted SHA-256
// hex digest. This is deliberately deterministic (credential reset relies on
// same-input-same-hash) and is an obfuscation step, not a security control.
func HashCredential(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// GenerateInitialCredential derives a member's initial credential: the last
// six characters of the member id, or the whole id when it is shorter.
func GenerateInitialCredential(memberID string) string {
	if len(memberID) >= 6 {
		return memberID[len(memberID)-6:]
	}
	return memberID
}

// AccountStore owns member records. It never reads lockout state; that
// belongs to the session guard alone.
type AccountStore struct {
	storage Storage
	logger  *log.Logger
	clock   Clock
	members []*MemberRecord
}

// NewAccountStore restores the member snapshot and returns the store.
func NewAccountStore(storage Storage, logger *log.Logger, clock Clock) (*AccountStore, error) {
	members, err := restoreSlot[[]*MemberRecord](storage, logger, slotMembers)
	if err != nil {
		return nil, fmt.Errorf("restore accounts: %w", err)
	}
	return &AccountStore{storage: storage, logger: logger, clock: clock, members: members}, nil
}

func (a *AccountStore) persist() error {
	return persistSlot(a.storage, slotMembers, a.members)
}

// MemberData is the caller-supplied portion of a new member record.
type MemberData struct {
	MemberID   string        `json:"member_id"`
	Name       string        `json:"name"`
	Identity   IdentityClass `json:"identity"`
	CardNumber string        `json:"card_number"`
}

func (a *AccountStore) hasMemberID(id string) bool {
	_, ok := a.FindByMemberID(id)
	return ok
}

func (a *AccountStore) hasCardNumber(card string) bool {
	_, ok := a.FindByCardNumber(card)
	return ok
}

// AddMember creates a member with role Member, status Normal, and a hashed
// initial credential. The plaintext credential is returned exactly once.
func (a *AccountStore) AddMember(data MemberData) AddMemberResult {
	if a.hasMemberID(data.MemberID) {
		return AddMemberResult{Result: failure("member id already exists")}
	}
	if a.hasCardNumber(data.CardNumber) {
		return AddMemberResult{Result: failure("card number already exists")}
	}

	initial := GenerateInitialCredential(data.MemberID)
	record := &MemberRecord{
		MemberID:       data.MemberID,
		Name:           data.Name,
		Identity:       data.Identity,
		CardNumber:     data.CardNumber,
		CredentialHash: HashCredential(initial),
		Role:           RoleMember,
		Status:         AccountNormal,
		CreatedAt:      a.clock.Now(),
	}
	a.members = append(a.members, record)

	if err := a.persist(); err != nil {
		return AddMemberResult{Result: failure(fmt.Sprintf("persistence failed: %v", err))}
	}
	return AddMemberResult{Result: success("member added"), InitialCredential: initial}
}

// ResetCredential regenerates the initial credential for the member matching
// both identifiers and returns the plaintext once.
func (a *AccountStore) ResetCredential(memberID, cardNumber string) ResetCredentialResult {
	var member *MemberRecord
	for _, m := range a.members {
		if m.MemberID == memberID && m.CardNumber == cardNumber {
			member = m
			break
		}
	}
	if member == nil {
		return ResetCredentialResult{Result: failure("no member matches the given member id and card number")}
	}

	initial := GenerateInitialCredential(memberID)
	member.CredentialHash = HashCredential(initial)
	member.UpdatedAt = a.clock.Now()

	if err := a.persist(); err != nil {
		return ResetCredentialResult{Result: failure(fmt.Sprintf("persistence failed: %v", err))}
	}
	return ResetCredentialResult{
		Result:            success("credential reset"),
		InitialCredential: initial,
		MemberName:        member.Name,
		Identity:          member.Identity,
	}
}

// FindByMemberID fetches a member by institutional id.
func (a *AccountStore) FindByMemberID(id string) (*MemberRecord, bool) {
	for _, m := range a.members {
		if m.MemberID == id {
			return m, true
		}
	}
	return nil, false
}

// FindByCardNumber fetches a member by card number.
func (a *AccountStore) FindByCardNumber(card string) (*MemberRecord, bool) {
	for _, m := range a.members {
		if m.CardNumber == card {
			return m, true
		}
	}
	return nil, false
}

// Members returns all member records in creation order.
func (a *AccountStore) Members() []*MemberRecord { return a.members }
