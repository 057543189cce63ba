// handlers/leaderboard.go
package handlers

import (
	"strconv"

	"unimap/middleware"
	"unimap/services"

	"github.com/gofiber/fiber/v2"
)

// GetLeaderboard returns the top boards by accumulated xp.
func GetLeaderboard(c *fiber.Ctx) error {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	records, err := services.GetProgressStore().TopByXP(limit)
	if err != nil {
		return err
	}

	entries := make([]fiber.Map, 0, len(records))
	for i, p := range records {
		entries = append(entries, fiber.Map{
			"rank":           i + 1,
			"username":       p.Username,
			"total_xp":       p.TotalXP,
			"unlocked_count": len(p.UnlockedIDs),
			"trophy_count":   len(p.UnlockedTrophyIDs),
		})
	}

	return c.JSON(fiber.Map{"success": true, "leaderboard": entries})
}

// GetMyRank returns the session user's leaderboard position.
func GetMyRank(c *fiber.Ctx) error {
	username, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	rank, err := services.GetProgressStore().RankOf(username)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "username": username, "rank": rank})
}
