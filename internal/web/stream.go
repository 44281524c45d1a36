package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleBalanceStream is an SSE feed of the caller's balance after each trade.
// Clients resume with Last-Event-ID or ?last_event_id.
func (s *Server) handleBalanceStream(c *gin.Context) {
	if s.deps.Snapshots == nil {
		c.String(http.StatusServiceUnavailable, "snapshot store not available")
		return
	}

	userID := c.GetString(UserIDContextKey)
	w := c.Writer

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(s.heartbeatInterval)
	defer heartbeat.Stop()

	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()

	lastIndex := parseLastEventID(c.GetHeader("Last-Event-ID"), c.Query("last_event_id"))
	send := func() error {
		records, err := s.deps.Snapshots.SnapshotsForUserAfter(userID, lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: balance\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			lastIndex = record.Index
		}
		w.Flush()
		return nil
	}

	if err := send(); err != nil {
		s.logger.Error("balance stream initial load", zap.String("user_id", userID), zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to load snapshots")
		return
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			w.Flush()
		case <-poll.C:
			if err := send(); err != nil {
				s.logger.Warn("balance stream poll", zap.String("user_id", userID), zap.Error(err))
			}
		}
	}
}

func parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
