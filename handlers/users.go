// handlers/users.go
package handlers

import (
	"strings"

	"unimap/apperr"
	"unimap/database"
	"unimap/middleware"
	"unimap/models"
	"unimap/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilm/fuzzy"
)

const searchCandidateLimit = 100

// GetCurrentUser returns the session user's account record.
func GetCurrentUser(c *fiber.Ctx) error {
	username, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := database.GetDB().Where("username = ?", username).First(&user).Error; err != nil {
		return apperr.NotFound("user %q does not exist", username)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// GetUserProfile returns a public view of another user: account basics plus
// a progress summary (no proofs).
func GetUserProfile(c *fiber.Ctx) error {
	username := c.Params("username")

	var user models.User
	if err := database.GetDB().Where("username = ?", username).First(&user).Error; err != nil {
		return apperr.NotFound("user %q does not exist", username)
	}

	progress, err := services.GetProgressStore().Get(username)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
		"summary": fiber.Map{
			"total_xp":       progress.TotalXP,
			"unlocked_count": len(progress.UnlockedIDs),
			"trophy_count":   len(progress.UnlockedTrophyIDs),
		},
	})
}

// SearchUsers finds partner candidates for co-op invites. The query must be
// at least two characters; results are fuzzy-ranked, and the session user is
// always included when they match.
func SearchUsers(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if len(query) < 2 {
		return apperr.Validation("search query must be at least 2 characters")
	}

	self, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	db := database.GetDB()
	var candidates []models.User
	pattern := "%" + strings.ToLower(query) + "%"
	if err := db.Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", pattern, pattern).
		Limit(searchCandidateLimit).
		Find(&candidates).Error; err != nil {
		return apperr.Persistence(err, "user search failed")
	}

	usernames := make([]string, len(candidates))
	byUsername := make(map[string]models.User, len(candidates))
	for i, u := range candidates {
		usernames[i] = u.Username
		byUsername[u.Username] = u
	}

	ranked := fuzzy.Find(query, usernames)
	results := make([]models.User, 0, len(ranked))
	seen := make(map[string]bool, len(ranked))
	for _, match := range ranked {
		results = append(results, byUsername[match.Str])
		seen[match.Str] = true
	}
	// Fuzzy ranking can drop substring matches on display name; keep them.
	for _, u := range candidates {
		if !seen[u.Username] {
			results = append(results, u)
			seen[u.Username] = true
		}
	}
	// The searching user always sees themselves when they match.
	if !seen[self] && strings.Contains(strings.ToLower(self), strings.ToLower(query)) {
		var me models.User
		if err := db.Where("username = ?", self).First(&me).Error; err == nil {
			results = append([]models.User{me}, results...)
		}
	}

	if len(results) > 20 {
		results = results[:20]
	}

	return c.JSON(fiber.Map{"success": true, "users": results})
}
