// services/recorder.go
package services

import (
	"github.com/wfunc/fruitbox/board"
	"github.com/wfunc/fruitbox/logger"
	"github.com/wfunc/fruitbox/monitor"
	"github.com/wfunc/fruitbox/persistence"
	"github.com/wfunc/fruitbox/playerboard"
)

// storeRecorder writes every board generation and player snapshot the
// coordinator commits. Failures are logged and never undo the commit.
type storeRecorder struct {
	store   persistence.Store
	monitor *monitor.Monitor
}

func (r *storeRecorder) BoardCreated(cfg *board.Configuration) {
	r.monitor.IncBoardGenerations()

	rec, err := persistence.BoardRecord(cfg)
	if err != nil {
		logger.Log.Errorf("Error encoding board %s/%d: %v", cfg.RoomCode, cfg.Generation, err)
		return
	}
	if err := r.store.SaveBoard(rec); err != nil {
		logger.Log.Errorf("Error saving board %s/%d: %v", cfg.RoomCode, cfg.Generation, err)
	}
}

func (r *storeRecorder) StateCommitted(s playerboard.State) {
	rec, err := persistence.StateRecord(s)
	if err != nil {
		logger.Log.Errorf("Error encoding state of player %d: %v", s.PlayerID, err)
		return
	}
	if err := r.store.SavePlayerState(rec); err != nil {
		logger.Log.Errorf("Error saving state of player %d seq %d: %v", s.PlayerID, s.Sequence, err)
	}
}
