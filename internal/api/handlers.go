package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MJE43/roulette-sim/internal/engine"
	"github.com/MJE43/roulette-sim/internal/games"
	"github.com/MJE43/roulette-sim/internal/scan"
	"github.com/MJE43/roulette-sim/internal/store"
	"github.com/MJE43/roulette-sim/internal/table"
)

var errNoTable = errors.New("no live table")

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// handleSimulate plays one nonce headless and previews a settlement
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}
	if err := ValidateSimulateRequest(&req); err != nil {
		s.errorHandler.HandleError(w, r, NewError(ErrTypeValidation, err.Error()).
			WithRequestID(middleware.GetReqID(r.Context())).Build())
		return
	}

	hz := req.TickHz
	if hz == 0 {
		hz = games.DefaultTickHz
	}

	res, err := s.roulette().Play(req.Seeds, req.Nonce, hz)
	if err != nil {
		s.errorHandler.HandleGameError(w, r, "roulette", req.Nonce, err)
		return
	}
	res.Round = req.Nonce

	settlement := table.Evaluate(req.Bets, res.WinningNumber)
	settlement.Round = req.Nonce

	s.logger.Debug("simulate completed",
		zap.String("server_hash", engine.HashServerSeed(req.Seeds.Server)),
		zap.Uint64("nonce", req.Nonce),
		zap.Int("number", res.WinningNumber),
		zap.Int("bets", len(req.Bets)),
	)

	s.writeJSON(w, http.StatusOK, SimulateResponse{
		Result:         res,
		Settlement:     settlement,
		ServerSeedHash: engine.HashServerSeed(req.Seeds.Server),
		TickHz:         hz,
		EngineVersion:  EngineVersion,
	})
}

// handleVerify replays one nonce through a registered game
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}
	if err := ValidateVerifyRequest(&req); err != nil {
		s.errorHandler.HandleError(w, r, NewError(ErrTypeValidation, err.Error()).
			WithRequestID(middleware.GetReqID(r.Context())).Build())
		return
	}

	game, _ := games.Get(req.Game)
	if req.Game == "roulette" {
		game = s.roulette()
	}

	params := make(map[string]any, len(req.Params)+1)
	for k, v := range req.Params {
		params[k] = v
	}
	if req.TickHz != 0 {
		params["tick_hz"] = req.TickHz
	}

	result, err := game.Evaluate(req.Seeds, req.Nonce, params)
	if err != nil {
		s.errorHandler.HandleGameError(w, r, req.Game, req.Nonce, err)
		return
	}

	resp := VerifyResponse{
		Nonce:         req.Nonce,
		GameResult:    result,
		EngineVersion: EngineVersion,
		Echo:          req,
	}
	if req.ExpectedNumber != nil {
		match := int(result.Metric) == *req.ExpectedNumber
		resp.Match = &match
	}

	s.logger.Info("verify completed",
		zap.String("game", req.Game),
		zap.String("server_hash", engine.HashServerSeed(req.Seeds.Server)),
		zap.Uint64("nonce", req.Nonce),
		zap.Float64("metric", result.Metric),
	)

	s.writeJSON(w, http.StatusOK, resp)
}

// handleScan replays a nonce range and returns the nonces whose metric
// matches the target
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scan.ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}
	if req.Game == "" {
		req.Game = "roulette"
	}
	if req.Seeds.Server == "" || req.Seeds.Client == "" {
		s.errorHandler.HandleValidationError(w, r, "seeds", "server and client seeds are required")
		return
	}

	res, err := s.scanner.Scan(r.Context(), req)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ScanResponse{
		Hits:          res.Hits,
		Summary:       res.Summary,
		EngineVersion: EngineVersion,
		Echo:          res.Echo,
	})
}

// handleListGames returns all registered games
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GamesResponse{
		Games:         games.List(),
		EngineVersion: EngineVersion,
	})
}

// handleSeedHash hashes a server seed for commitment checks
func (s *Server) handleSeedHash(w http.ResponseWriter, r *http.Request) {
	var req SeedHashRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}
	if err := ValidateSeedHashRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "server_seed", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, SeedHashResponse{
		Hash:          engine.HashServerSeed(req.ServerSeed),
		EngineVersion: EngineVersion,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}

// handleListRounds pages through recorded rounds
func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, ErrTypeServiceUnavailable, "Round history is disabled", nil)
		return
	}

	q := store.RoundsQuery{SessionID: r.URL.Query().Get("session_id")}

	number, err := queryInt(r, "number")
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "number", "number must be an integer")
		return
	}
	q.Number = number

	forced, err := queryBool(r, "forced")
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "forced", "forced must be a boolean")
		return
	}
	q.Forced = forced

	for key, dst := range map[string]*int{"page": &q.Page, "per_page": &q.PerPage} {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			s.errorHandler.HandleValidationError(w, r, key, fmt.Sprintf("%s must be a non-negative integer", key))
			return
		}
		*dst = v
	}

	list, err := s.db.ListRounds(q)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleGetRound returns one recorded round with its bets
func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, ErrTypeServiceUnavailable, "Round history is disabled", nil)
		return
	}
	round, err := s.db.GetRound(chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, round)
}

// requireTable writes 503 when no live session is attached.
func (s *Server) requireTable(w http.ResponseWriter, r *http.Request) bool {
	if s.table == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, ErrTypeServiceUnavailable, errNoTable.Error(), nil)
		return false
	}
	return true
}

func (s *Server) writeTableState(w http.ResponseWriter, r *http.Request, status int, resp TableResponse) {
	st, err := s.table.State(r.Context())
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	resp.State = st
	resp.EngineVersion = EngineVersion
	s.writeJSON(w, status, resp)
}

func (s *Server) handleTableState(w http.ResponseWriter, r *http.Request) {
	if !s.requireTable(w, r) {
		return
	}
	s.writeTableState(w, r, http.StatusOK, TableResponse{})
}

// handlePlaceBets places bets in order and stops at the first rejection;
// bets accepted before it stay on the layout.
func (s *Server) handlePlaceBets(w http.ResponseWriter, r *http.Request) {
	if !s.requireTable(w, r) {
		return
	}
	var req PlaceBetsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}
	if err := ValidatePlaceBetsRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "bets", err.Error())
		return
	}

	for i, b := range req.Bets {
		if err := s.table.PlaceBet(r.Context(), b); err != nil {
			s.errorHandler.HandleError(w, r, fmt.Errorf("bets[%d]: %w", i, err))
			return
		}
	}
	s.writeTableState(w, r, http.StatusCreated, TableResponse{})
}

func (s *Server) handleClearBets(w http.ResponseWriter, r *http.Request) {
	if !s.requireTable(w, r) {
		return
	}
	refund, err := s.table.ClearBets(r.Context())
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeTableState(w, r, http.StatusOK, TableResponse{Refund: &refund})
}

func (s *Server) handleSpin(w http.ResponseWriter, r *http.Request) {
	if !s.requireTable(w, r) {
		return
	}
	if err := s.table.Spin(r.Context()); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeTableState(w, r, http.StatusAccepted, TableResponse{})
}

func (s *Server) handleAutoplay(w http.ResponseWriter, r *http.Request) {
	if !s.requireTable(w, r) {
		return
	}
	var req AutoplayRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}
	if err := s.table.SetAutoplay(r.Context(), req.On); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeTableState(w, r, http.StatusOK, TableResponse{})
}
