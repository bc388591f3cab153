package db

import (
	"database/sql"
	"time"

	"flybin/svc/util"
)

const checkpointInterval = 5 * time.Minute

// StartWALMaintenance periodically checkpoints the WAL so it does not grow
// without bound under sustained ingestion. Runs until quit is closed, with a
// final checkpoint on the way out.
func StartWALMaintenance(db *sql.DB, quit chan struct{}) {
	ticker := time.NewTicker(checkpointInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			checkpointWAL(db)
		case <-quit:
			checkpointWAL(db)
			return
		}
	}
}

func checkpointWAL(db *sql.DB) {
	start := time.Now()
	var busyPages, logPages, checkpointed int
	err := db.QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busyPages, &logPages, &checkpointed)
	if err != nil {
		util.Warn().Err(err).Msg("PASSIVE checkpoint failed")
		return
	}
	if logPages > 1000 || busyPages > 0 {
		if err := db.QueryRow("PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busyPages, &logPages, &checkpointed); err != nil {
			util.Warn().Err(err).Msg("TRUNCATE checkpoint failed")
			return
		}
	}
	util.Debug().
		Int("log", logPages).
		Int("checkpointed", checkpointed).
		Dur("duration", time.Since(start)).
		Msg("WAL checkpoint completed")
}
