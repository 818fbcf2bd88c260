package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/Keburichi/excelbot/internal/infra/storage"
	"github.com/Keburichi/excelbot/internal/redact"
)

const importLogLimit = 50

type memberDirectory interface {
	List(ctx context.Context) ([]storage.Member, error)
	GetByDiscordID(ctx context.Context, discordID string) (storage.Member, error)
	ExperienceFightIDs(ctx context.Context, discordID string) ([]int64, error)
}

type fightCatalog interface {
	List(ctx context.Context) ([]storage.Fight, error)
	Get(ctx context.Context, id int64) (storage.Fight, error)
}

type lotteryLedger interface {
	AllGuesses(ctx context.Context) ([]storage.LotteryGuess, error)
	AllAwards(ctx context.Context) ([]storage.ExtraLotteryGuess, error)
	RecentResults(ctx context.Context, limit int) ([]storage.LotteryResult, error)
}

type importLogReader interface {
	Recent(ctx context.Context, limit int) ([]storage.ImportLog, error)
}

type verifier interface {
	Begin(ctx context.Context, discordID string) (string, error)
	Complete(ctx context.Context, discordID, lodestoneID string) (bool, error)
}

type Server struct {
	secret  string
	members memberDirectory
	fights  fightCatalog
	ledger  lotteryLedger
	imports importLogReader
	verify  verifier
	mux     *http.ServeMux
}

func New(secret string, members memberDirectory, fights fightCatalog, ledger lotteryLedger, imports importLogReader, verify verifier) *Server {
	s := &Server{
		secret:  secret,
		members: members,
		fights:  fights,
		ledger:  ledger,
		imports: imports,
		verify:  verify,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/members", s.withCaller(s.handleMembers))
	s.mux.HandleFunc("/api/members/me", s.withCaller(s.handleMe))
	s.mux.HandleFunc("/api/fights", s.withCaller(s.handleFights))
	s.mux.HandleFunc("/api/fights/{id}", s.withCaller(s.handleFight))
	s.mux.HandleFunc("/api/verify/begin", s.withCaller(s.handleVerifyBegin))
	s.mux.HandleFunc("/api/verify/complete", s.withCaller(s.handleVerifyComplete))
	s.mux.HandleFunc("/api/lottery", s.withCaller(s.handleLotterySummary))
	s.mux.HandleFunc("/api/imports", s.withCaller(s.handleImportLogs))
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Start(addr string) {
	log.Printf("🌐 HTTP listening on %s", addr)
	if err := http.ListenAndServe(addr, s.mux); err != nil {
		log.Fatalf("http server: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	members, err := s.members.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list members")
		return
	}
	out := make([]*MemberDTO, 0, len(members))
	for _, m := range members {
		out = append(out, memberDTO(m))
	}
	redact.ApplySlice(redact.FromContext(r.Context()), out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := callerID(r.Context())
	if id == "" {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	m, err := s.members.GetByDiscordID(r.Context(), id)
	if err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "not in the member directory")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load member")
		return
	}
	dto := memberDTO(m)
	if xp, err := s.members.ExperienceFightIDs(r.Context(), id); err == nil {
		dto.Experience = xp
	}
	// you always get the member view of yourself
	view := redact.FromContext(r.Context())
	view.Member = true
	redact.Apply(view, dto)
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleFights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	fights, err := s.fights.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list fights")
		return
	}
	out := make([]FightDTO, 0, len(fights))
	for _, f := range fights {
		out = append(out, fightDTO(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fight id")
		return
	}
	f, err := s.fights.Get(r.Context(), id)
	if err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "unknown fight")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load fight")
		return
	}
	writeJSON(w, http.StatusOK, fightDTO(f))
}

func (s *Server) handleVerifyBegin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := callerID(r.Context())
	if id == "" {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	token, err := s.verify.Begin(r.Context(), id)
	if err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "not in the member directory")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not start verification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleVerifyComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := callerID(r.Context())
	if id == "" {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	var body struct {
		LodestoneID string `json:"lodestone_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.LodestoneID == "" {
		writeError(w, http.StatusBadRequest, "lodestone_id is required")
		return
	}
	matched, err := s.verify.Complete(r.Context(), id, body.LodestoneID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not verify character")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": matched})
}

func (s *Server) handleLotterySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !redact.FromContext(r.Context()).Admin {
		writeError(w, http.StatusForbidden, "admins only")
		return
	}
	guesses, err := s.ledger.AllGuesses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load lottery state")
		return
	}
	awards, err := s.ledger.AllAwards(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load lottery state")
		return
	}
	results, err := s.ledger.RecentResults(r.Context(), 12)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load lottery state")
		return
	}

	out := LotterySummaryDTO{Guesses: guesses}
	for _, a := range awards {
		out.Awards = append(out.Awards, lotteryAwardDTO{DiscordID: a.DiscordID, Reason: a.Reason, AwardedAt: a.AwardedAt})
	}
	for _, res := range results {
		out.Recent = append(out.Recent, lotteryResultShortDTO{
			WinningNumber: res.WinningNumber,
			GuessCount:    len(res.Guesses),
			CreatedAt:     res.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !redact.FromContext(r.Context()).Admin {
		writeError(w, http.StatusForbidden, "admins only")
		return
	}
	logs, err := s.imports.Recent(r.Context(), importLogLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load import logs")
		return
	}
	out := make([]ImportLogDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, ImportLogDTO{
			Type:        string(l.ImportType),
			StartTime:   l.StartTime,
			EndTime:     l.EndTime,
			Processed:   l.ItemsProcessed,
			Updated:     l.ItemsUpdated,
			Skipped:     l.ItemsSkipped,
			APIRequests: l.APIRequestCount,
			Success:     l.Success,
			Error:       l.ErrorMessage,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
