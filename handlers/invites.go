// handlers/invites.go
package handlers

import (
	"unimap/apperr"
	"unimap/middleware"
	"unimap/models"
	"unimap/services"

	"github.com/gofiber/fiber/v2"
)

type SendInviteRequest struct {
	AchievementID string        `json:"achievement_id"`
	ToUsername    string        `json:"to_username"`
	Proof         *models.Proof `json:"proof,omitempty"`
}

// SendInvite creates a pending co-op invite from the session user.
func SendInvite(c *fiber.Ctx) error {
	var req SendInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	from, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	invite, err := services.GetInviteCoordinator().Send(from, req.ToUsername, req.AchievementID, req.Proof)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "invite": invite})
}

// AcceptInvite resolves a pending invite, crediting both parties. A partial
// persistence failure still reports which side was credited so the client
// can explain exactly what happened.
func AcceptInvite(c *fiber.Ctx) error {
	actor, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	result, err := services.GetInviteCoordinator().Accept(c.Params("id"), actor)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindPersistence && result != nil {
			return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
				"success":        false,
				"error":          errMessage(err),
				"invite":         result.Invite,
				"acceptor_saved": result.AcceptorSaved,
				"sender_saved":   result.SenderSaved,
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success":              true,
		"invite":               result.Invite,
		"progress":             result.Acceptor.Progress,
		"new_trophies":         trophyPayload(result.Acceptor.NewTrophies),
		"partner_new_trophies": trophyPayload(result.Sender.NewTrophies),
	})
}

// RejectInvite declines a pending invite; the achievement stays locked for
// both parties and the sender may re-send later.
func RejectInvite(c *fiber.Ctx) error {
	actor, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	invite, err := services.GetInviteCoordinator().Reject(c.Params("id"), actor)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "invite": invite})
}

// CancelInvite withdraws a pending invite the session user sent.
func CancelInvite(c *fiber.Ctx) error {
	actor, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	invite, err := services.GetInviteCoordinator().Cancel(c.Params("id"), actor)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "invite": invite})
}

// GetPendingInvites lists pending invites addressed to the session user,
// enriched with the achievement definition for the review list.
func GetPendingInvites(c *fiber.Ctx) error {
	username, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	invites, err := services.GetInviteCoordinator().PendingFor(username)
	if err != nil {
		return err
	}

	catalog := services.GetCatalog()
	enriched := make([]fiber.Map, 0, len(invites))
	for _, invite := range invites {
		entry := fiber.Map{"invite": invite}
		if def, ok := catalog.Get(invite.AchievementID); ok {
			entry["achievement"] = def
		}
		enriched = append(enriched, entry)
	}

	return c.JSON(fiber.Map{"success": true, "invites": enriched, "count": len(invites)})
}

// GetPendingInviteCount returns the badge count. Clients poll this on a
// fixed interval (30s), skipping a tick while a previous poll is in flight.
func GetPendingInviteCount(c *fiber.Ctx) error {
	username, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	count, err := services.GetInviteCoordinator().PendingCount(username)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "count": count})
}

// GetOutgoingInvite returns the session user's pending invite for one
// achievement, if any, so the client can offer "cancel existing" instead of
// a doomed duplicate send.
func GetOutgoingInvite(c *fiber.Ctx) error {
	username, err := middleware.GetUsername(c)
	if err != nil {
		return err
	}

	achievementID := c.Query("achievement_id")
	if achievementID == "" {
		return apperr.Validation("achievement_id query parameter is required")
	}

	invite, err := services.GetInviteCoordinator().PendingFromSender(username, achievementID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "invite": invite})
}
