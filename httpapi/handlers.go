package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	goLedger "github.com/MrEthical07/goLedger"
	"github.com/MrEthical07/goLedger/ledger"
	"github.com/MrEthical07/goLedger/middleware"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

const healthMessage = "service is up and running"

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, healthMessage)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errMalformedBody
	}
	return nil
}

// ---- auth ----

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req goLedger.SignUpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	res, err := s.identity.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// token only runs after the gate has exchanged the Basic credentials.
func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.TokenResultFromContext(r.Context())
	if !ok {
		writeError(w, r, s.log, goLedger.ErrAuthenticationFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": res.Token})
}

// ---- users ----

type userView struct {
	Username string `json:"username"`
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.identity.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{Username: u.Username})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if err := s.identity.DeleteUser(r.Context(), username); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, goLedger.SignUpResult{
		Success: true,
		Message: "User '" + username + "' has been deleted successfully",
	})
}

// ---- accounts ----

type createAccountRequest struct {
	HolderName string `json:"accountHolderName"`
	Branch     string `json:"accountBranch"`
}

type deleteAccountResponse struct {
	Timestamp     string `json:"timestamp"`
	AccountNumber int64  `json:"accountNumber"`
	Status        string `json:"status"`
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accts, err := s.accounts.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if accts == nil {
		accts = []ledger.Account{}
	}
	writeJSON(w, http.StatusOK, accts)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	acct, err := s.accounts.CreateAccount(r.Context(), req.HolderName, req.Branch)
	s.writeAccount(w, r, acct, err)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.accounts.GetAccount(r.Context(), mux.Vars(r)["accountNumber"])
	s.writeAccount(w, r, acct, err)
}

func (s *Server) updateBranch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	acct, err := s.accounts.UpdateBranch(r.Context(), q.Get("accountNumber"), q.Get("newBranch"))
	s.writeAccount(w, r, acct, err)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	number, err := s.accounts.DeleteAccount(r.Context(), r.URL.Query().Get("accountNumber"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteAccountResponse{
		Timestamp:     ledger.FormatTimestamp(time.Now()),
		AccountNumber: number,
		Status:        "deleted",
	})
}

// ---- transactions ----

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	acct, err := s.accounts.Deposit(r.Context(), q.Get("accountNumber"), q.Get("amount"))
	s.writeAccount(w, r, acct, err)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	acct, err := s.accounts.Withdraw(r.Context(), q.Get("accountNumber"), q.Get("amount"))
	s.writeAccount(w, r, acct, err)
}

func (s *Server) writeAccount(w http.ResponseWriter, r *http.Request, acct ledger.Account, err error) {
	if err != nil {
		if errors.Is(err, ledger.ErrNumberSpaceExhausted) {
			s.log.Error().Err(err).Msg("account number allocation failed")
		}
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}
