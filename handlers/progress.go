// handlers/progress.go
package handlers

import (
	"errors"

	"unimap/apperr"
	"unimap/database"
	"unimap/middleware"
	"unimap/models"
	"unimap/services"

	"github.com/gofiber/fiber/v2"
)

type UnlockRequest struct {
	// Username is optional and, when present, must match the session user.
	// Viewing another user's board never permits mutation.
	Username      string        `json:"username,omitempty"`
	AchievementID string        `json:"achievement_id"`
	Proof         *models.Proof `json:"proof,omitempty"`
}

type AttachProofRequest struct {
	Username      string       `json:"username,omitempty"`
	AchievementID string       `json:"achievement_id"`
	Proof         models.Proof `json:"proof"`
}

type RecordScanRequest struct {
	Username      string `json:"username,omitempty"`
	AchievementID string `json:"achievement_id"`
	CodeID        string `json:"code_id"`
}

// requireOwn rejects mutations addressed to anyone but the session user.
func requireOwn(c *fiber.Ctx, requested string) (string, error) {
	actor, err := middleware.GetUsername(c)
	if err != nil {
		return "", err
	}
	if requested != "" && requested != actor {
		return "", apperr.Permission("cannot modify another user's progress")
	}
	return actor, nil
}

// GetMyProgress returns the session user's full Progress document plus the
// resolved recent-activity entries.
func GetMyProgress(c *fiber.Ctx) error {
	username, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	progress, err := services.GetProgressStore().Get(username)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"progress": progress,
		"recent":   recentActivity(progress, 5),
	})
}

// GetUserProgress returns another user's board for spectating. Read-only:
// no mutation endpoint accepts a foreign username.
func GetUserProgress(c *fiber.Ctx) error {
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
		"success":  true,
		"progress": progress,
		"recent":   recentActivity(progress, 5),
		"viewer":   true,
	})
}

// Unlock unlocks an achievement for the session user. Repeating the call is
// a no-op; xp is never double-awarded.
func Unlock(c *fiber.Ctx) error {
	var req UnlockRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	username, err := requireOwn(c, req.Username)
	if err != nil {
		return err
	}

	result, err := services.GetUnlockEngine().Unlock(username, req.AchievementID, req.Proof)
	if err != nil {
		// A failed save keeps the unlock applied in memory; the trophies are
		// still reported so the client can show them and retry the save.
		if apperr.KindOf(err) == apperr.KindPersistence && result != nil {
			return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
				"success":      false,
				"error":        errMessage(err),
				"progress":     result.Progress,
				"new_trophies": trophyPayload(result.NewTrophies),
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"progress":     result.Progress,
		"new_trophies": trophyPayload(result.NewTrophies),
	})
}

// AttachProof updates the proof on an already-unlocked achievement.
func AttachProof(c *fiber.Ctx) error {
	var req AttachProofRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	username, err := requireOwn(c, req.Username)
	if err != nil {
		return err
	}

	progress, err := services.GetUnlockEngine().AttachProof(username, req.AchievementID, req.Proof)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindPersistence && progress != nil {
			return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
				"success":  false,
				"error":    errMessage(err),
				"progress": progress,
			})
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "progress": progress})
}

// RecordScan adds a collected scan code. Duplicates are ignored; collecting
// the required count never unlocks the achievement by itself.
func RecordScan(c *fiber.Ctx) error {
	var req RecordScanRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	username, err := requireOwn(c, req.Username)
	if err != nil {
		return err
	}

	progress, err := services.GetUnlockEngine().RecordScan(username, req.AchievementID, req.CodeID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindPersistence && progress != nil {
			return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
				"success":  false,
				"error":    errMessage(err),
				"progress": progress,
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"progress":   progress,
		"scan_count": progress.ScanCount(req.AchievementID),
	})
}

// recentActivity resolves the newest unlocks to their catalog definitions.
func recentActivity(progress *models.Progress, n int) []fiber.Map {
	catalog := services.GetCatalog()
	out := make([]fiber.Map, 0, n)
	for _, id := range progress.Recent(n) {
		def, ok := catalog.Get(id)
		if !ok {
			continue
		}
		out = append(out, fiber.Map{
			"id":       def.ID,
			"title":    def.Title,
			"category": def.Category,
			"xp":       def.XP,
		})
	}
	return out
}

// trophyPayload expands trophy ids into their definitions for display.
func trophyPayload(ids []string) []fiber.Map {
	out := make([]fiber.Map, 0, len(ids))
	for _, id := range ids {
		trophy, ok := services.TrophyByID(id)
		if !ok {
			continue
		}
		out = append(out, fiber.Map{
			"id":          trophy.ID,
			"title":       trophy.Title,
			"description": trophy.Description,
		})
	}
	return out
}

func errMessage(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
