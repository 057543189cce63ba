// handlers/catalog.go
package handlers

import (
	"unimap/apperr"
	"unimap/services"

	"github.com/gofiber/fiber/v2"
)

// GetCatalog returns the full achievement catalog and the trophy
// definitions. Both are static, so the response is safely cacheable.
func GetCatalog(c *fiber.Ctx) error {
	catalog := services.GetCatalog()
	return c.JSON(fiber.Map{
		"success":      true,
		"achievements": catalog.All(),
		"trophies":     services.Trophies(),
		"total":        catalog.Len(),
		"root":         catalog.RootID(),
	})
}

// GetAchievement returns one catalog definition.
func GetAchievement(c *fiber.Ctx) error {
	id := c.Params("id")
	def, ok := services.GetCatalog().Get(id)
	if !ok {
		return apperr.NotFound("achievement %q does not exist", id)
	}
	return c.JSON(fiber.Map{"success": true, "achievement": def})
}
