package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"library-circulation/library"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := codec.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "err", err)
	}
}

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := codec.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, library.Result{Message: "invalid request body"})
		return false
	}
	return true
}

// withAuth requires a valid session token on mutating routes. This is a
// token presence check only; page-level authorization stays with the outer
// routing layer.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if _, ok := s.tokens[token]; token == "" || !ok {
			s.writeJSON(w, http.StatusUnauthorized, library.Result{Message: "authentication required"})
			return
		}
		next(w, r)
	}
}

// operatorFor resolves the acting operator name from the request token.
func (s *Server) operatorFor(r *http.Request) string {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	memberID, ok := s.tokens[token]
	if !ok {
		return ""
	}
	if member, found := s.accounts.FindByMemberID(memberID); found {
		return member.Name
	}
	return memberID
}

// memberView is the member shape exposed over the API; the credential hash
// stays server-side.
type memberView struct {
	MemberID   string                `json:"member_id"`
	Name       string                `json:"name"`
	Identity   library.IdentityClass `json:"identity"`
	CardNumber string                `json:"card_number"`
	Role       library.Role          `json:"role"`
}

func viewOf(m *library.MemberRecord) *memberView {
	if m == nil {
		return nil
	}
	return &memberView{
		MemberID:   m.MemberID,
		Name:       m.Name,
		Identity:   m.Identity,
		CardNumber: m.CardNumber,
		Role:       m.Role,
	}
}

type loginRequest struct {
	MemberID   string `json:"member_id"`
	Credential string `json:"credential"`
}

type loginResponse struct {
	library.Result
	Token string       `json:"token,omitempty"`
	User  *memberView  `json:"user,omitempty"`
	Role  library.Role `json:"role,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	res := s.guard.Authenticate(req.MemberID, req.Credential)
	if !res.Success {
		s.metrics.loginFailures.Inc()
		s.writeJSON(w, http.StatusOK, loginResponse{Result: res.Result})
		return
	}

	token := uuid.NewString()
	s.tokens[token] = res.Member.MemberID
	s.writeJSON(w, http.StatusOK, loginResponse{
		Result: res.Result,
		Token:  token,
		User:   viewOf(res.Member),
		Role:   res.Role,
	})
}

// handleLogout revokes the caller's token only. The guard's persisted
// session slot tracks the most recent login and belongs to the CLI flow;
// clearing it here would wipe it for every other live token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	delete(s.tokens, token)
	s.writeJSON(w, http.StatusOK, library.Result{Success: true, Message: "logged out"})
}

func (s *Server) handleQueryBooks(w http.ResponseWriter, r *http.Request) {
	filter := library.BookFilter{
		ISBN:  r.URL.Query().Get("isbn"),
		Title: r.URL.Query().Get("title"),
	}
	books := s.catalog.QueryBooks(filter)
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "books": books})
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var data library.BookData
	if !s.readJSON(w, r, &data) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.catalog.AddBook(data))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collectionId"]
	book, ok := s.catalog.GetByCollectionID(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, library.Result{Message: "book not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "book": book})
}

type updateStatusRequest struct {
	Status library.BookStatus `json:"status"`
}

func (s *Server) handleUpdateBookStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	id := mux.Vars(r)["collectionId"]
	s.writeJSON(w, http.StatusOK, s.catalog.UpdateStatus(id, req.Status, s.operatorFor(r)))
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var data library.MemberData
	if !s.readJSON(w, r, &data) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.accounts.AddMember(data))
}

type resetCredentialRequest struct {
	MemberID   string `json:"member_id"`
	CardNumber string `json:"card_number"`
}

func (s *Server) handleResetCredential(w http.ResponseWriter, r *http.Request) {
	var req resetCredentialRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.accounts.ResetCredential(req.MemberID, req.CardNumber))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "config": s.config.Config()})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg library.PolicyConfig
	if !s.readJSON(w, r, &cfg) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.config.UpdateConfig(cfg))
}

func (s *Server) handleResetConfig(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.config.ResetToDefault())
}

type borrowRequest struct {
	CardNumber    string   `json:"card_number"`
	CollectionIDs []string `json:"collection_ids"`
}

type validateResponse struct {
	library.Result
	Member *memberView              `json:"member,omitempty"`
	Checks []library.BookValidation `json:"checks,omitempty"`
}

func (s *Server) handleValidateBorrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	res := s.engine.ValidateBorrow(req.CardNumber, req.CollectionIDs)
	s.writeJSON(w, http.StatusOK, validateResponse{Result: res.Result, Member: viewOf(res.Member), Checks: res.Checks})
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	res := s.engine.BorrowBooks(req.CardNumber, req.CollectionIDs, s.operatorFor(r))
	if res.Success {
		s.metrics.borrows.Add(float64(len(res.Records)))
	}
	s.writeJSON(w, http.StatusOK, res)
}

type returnRequest struct {
	CollectionID string `json:"collection_id"`
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	res := s.engine.ReturnBook(req.CollectionID, s.operatorFor(r))
	if res.Success {
		s.metrics.returns.Inc()
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueryLoans(w http.ResponseWriter, r *http.Request) {
	filter := library.LoanFilter{
		CardNumber: r.URL.Query().Get("card_number"),
		Status:     library.LoanStatus(r.URL.Query().Get("status")),
	}
	loans := s.engine.QueryLoans(filter)
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "loans": loans})
}

func (s *Server) handleBookStatusStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "statistics": s.engine.StatusStatistics()})
}

func (s *Server) handleTopBooks(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "top_books": s.engine.TopBorrowedBooks(limit)})
}
