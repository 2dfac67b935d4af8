// api/leaderboard.go
package api

import (
	"log"
	"net/http"

	"runeRelicServer/config"
	"runeRelicServer/db"
)

/* =========================
   RESPONSE TYPES
========================= */

// LeaderboardResponse represents the leaderboard API response
type LeaderboardResponse struct {
	Success      bool                    `json:"success"`
	Leaderboard  []*db.LeaderboardRecord `json:"leaderboard"`
	UserPosition *db.LeaderboardRecord   `json:"userPosition,omitempty"`
}

/* =========================
   HTTP ENDPOINTS
========================= */

// HandleGetLeaderboard handles GET /api/leaderboard
// Query params: limit (optional), player (optional) - get player's position
func (h *handlers) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := parseLimit(r, config.DefaultLeaderboardLimit)

	if db.PostgresPool == nil {
		sendError(w, http.StatusServiceUnavailable, "Leaderboard requires PostgreSQL")
		return
	}

	records, err := db.GetLeaderboard(ctx, limit)
	if err != nil {
		log.Printf("❌ Failed to get leaderboard: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	response := LeaderboardResponse{
		Success:     true,
		Leaderboard: records,
	}
	if response.Leaderboard == nil {
		response.Leaderboard = []*db.LeaderboardRecord{}
	}

	// Check for player query param
	if player := r.URL.Query().Get("player"); player != "" {
		inTop := false
		for _, entry := range records {
			if entry.PlayerID == player {
				inTop = true
				break
			}
		}

		if !inTop {
			rec, err := db.GetPlayerRank(ctx, player)
			if err != nil {
				log.Printf("⚠️ Failed to get player rank: %v", err)
			} else {
				response.UserPosition = rec
			}
		}
	}

	sendJSON(w, http.StatusOK, response)
	log.Printf("📋 Retrieved leaderboard with %d entries", len(records))
}
