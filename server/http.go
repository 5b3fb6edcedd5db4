package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wfunc/fruitbox/logger"
	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/services"
)

// statusFor maps game errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrRoomNotFound), errors.Is(err, models.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrRoomFull),
		errors.Is(err, models.ErrRoomNameTaken),
		errors.Is(err, models.ErrPlayerNameTaken),
		errors.Is(err, models.ErrRoomNotStartable),
		errors.Is(err, models.ErrGameFinished):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidMaxPlayers),
		errors.Is(err, models.ErrInvalidName),
		errors.Is(err, models.ErrInvalidSelection):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

// decode reads an optional JSON body into v. An empty body is allowed.
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: msg})
}

func playerParams(r *http.Request) (string, int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "playerID"), 10, 64)
	if err != nil {
		return "", 0, false
	}
	return chi.URLParam(r, "code"), id, true
}

func (s *GameServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	status, err := s.game.CreateRoom(req.Name, req.MaxPlayers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

func (s *GameServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.ListRooms())
}

func (s *GameServer) handleCleanup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	deleteAll, _ := strconv.ParseBool(q.Get("delete_all"))
	n := s.game.Cleanup(services.CleanupOptions{
		DeleteAll: deleteAll,
		Name:      strings.TrimSpace(q.Get("force_delete_name")),
	})
	writeJSON(w, http.StatusOK, models.CleanupResult{RoomsDeleted: n})
}

func (s *GameServer) handleRoomStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.game.GetRoomStatus(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *GameServer) handleStartGame(w http.ResponseWriter, r *http.Request) {
	status, err := s.game.StartGame(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *GameServer) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req models.JoinRoomRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	code := chi.URLParam(r, "code")
	playerID, err := s.game.JoinRoom(code, req.PlayerName)
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := s.game.GetVisibleBoard(code, playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.JoinResult{PlayerID: playerID, RoomCode: view.RoomCode, Board: view})
}

func (s *GameServer) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	code, playerID, ok := playerParams(r)
	if !ok {
		badRequest(w, "invalid player id")
		return
	}
	view, err := s.game.GetVisibleBoard(code, playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *GameServer) handleSelection(w http.ResponseWriter, r *http.Request) {
	code, playerID, ok := playerParams(r)
	if !ok {
		badRequest(w, "invalid player id")
		return
	}
	var req models.SelectionRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	result, err := s.game.SubmitSelection(code, playerID, req.Rectangle())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *GameServer) handleNewBoard(w http.ResponseWriter, r *http.Request) {
	code, playerID, ok := playerParams(r)
	if !ok {
		badRequest(w, "invalid player id")
		return
	}
	result, err := s.game.RequestNewBoard(code, playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *GameServer) handleFinish(w http.ResponseWriter, r *http.Request) {
	code, playerID, ok := playerParams(r)
	if !ok {
		badRequest(w, "invalid player id")
		return
	}
	var req models.FinishRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	result, err := s.game.ReportFinished(code, playerID, req.FinalScore)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *GameServer) handleSyncTime(w http.ResponseWriter, r *http.Request) {
	code, playerID, ok := playerParams(r)
	if !ok {
		badRequest(w, "invalid player id")
		return
	}
	var req models.TimeRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	view, err := s.game.SyncTime(code, playerID, req.TimeRemaining)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
