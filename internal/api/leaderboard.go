package api

import (
	"net/http"
	"strconv"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/service"
	"bounty_hunter/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type leaderboardRoutes struct {
	ls service.LeaderboardServiceI
}

func NewLeaderboardRoutes(handler *gin.RouterGroup, ls service.LeaderboardServiceI) {
	r := &leaderboardRoutes{ls: ls}
	h := handler.Group("/leaderboard")
	{
		h.GET("/points", r.GetPoints)
		h.GET("/referrers", r.GetReferrers)
	}
}

type leaderboardEntry struct {
	Rank      int    `json:"rank"`
	Username  string `json:"username"`
	Points    int    `json:"points"`
	Referrals int    `json:"referrals"`
}

func toLeaderboard(entries []*model.LeaderboardEntry) []leaderboardEntry {
	out := make([]leaderboardEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, leaderboardEntry{
			Rank:      e.Rank,
			Username:  e.Username,
			Points:    e.Points,
			Referrals: e.Referrals,
		})
	}
	return out
}

// limit=0 lets the service pick its default.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, false
	}
	return limit, true
}

func (r *leaderboardRoutes) GetPoints(c *gin.Context) {
	log := logger.Logger()

	limit, ok := queryLimit(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	entries, err := r.ls.PointsLeaderboard(c.Request.Context(), limit)
	if err != nil {
		log.Error("failed to get points leaderboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": toLeaderboard(entries)})
}

func (r *leaderboardRoutes) GetReferrers(c *gin.Context) {
	log := logger.Logger()

	limit, ok := queryLimit(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	entries, err := r.ls.ReferralLeaderboard(c.Request.Context(), limit)
	if err != nil {
		log.Error("failed to get referral leaderboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": toLeaderboard(entries)})
}
