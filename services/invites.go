// services/invites.go - Co-op invite coordinator
package services

import (
	"errors"
	"log"
	"time"

	"unimap/apperr"
	"unimap/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InviteCoordinator manages the co-op invite lifecycle between two users
// sharing one achievement: create, accept, reject, cancel. Terminal invites
// are immutable; the status column transition is guarded at the row level so
// a double-tapped accept resolves exactly once.
type InviteCoordinator struct {
	db      *gorm.DB
	store   *ProgressStore
	engine  *UnlockEngine
	catalog *Catalog
}

func NewInviteCoordinator(db *gorm.DB, store *ProgressStore, engine *UnlockEngine, catalog *Catalog) *InviteCoordinator {
	return &InviteCoordinator{db: db, store: store, engine: engine, catalog: catalog}
}

// Send creates a pending invite from one user to another for a co-op
// achievement. At most one pending invite may exist per (sender,
// achievement) pair.
func (ic *InviteCoordinator) Send(from, to, achievementID string, proof *models.Proof) (*models.CoopInvite, error) {
	def, ok := ic.catalog.Get(achievementID)
	if !ok {
		return nil, apperr.NotFound("achievement %q does not exist", achievementID)
	}
	if def.Kind != models.KindCoop {
		return nil, apperr.Validation("achievement %q is not a co-op achievement", def.ID)
	}
	if from == to {
		return nil, apperr.Validation("cannot invite yourself")
	}
	if err := proof.Validate(); err != nil {
		return nil, err
	}

	var recipient models.User
	if err := ic.db.Where("username = ?", to).First(&recipient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user %q does not exist", to)
		}
		return nil, apperr.Persistence(err, "could not look up user %q", to)
	}

	senderProgress, err := ic.store.Get(from)
	if err != nil {
		return nil, err
	}
	if senderProgress.HasUnlocked(def.ID) {
		return nil, apperr.InvalidState("achievement %q is already unlocked", def.ID)
	}

	if existing, err := ic.PendingFromSender(from, def.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperr.InvalidState("a pending invite for %q already exists", def.ID)
	}

	invite := &models.CoopInvite{
		ID:            uuid.NewString(),
		AchievementID: def.ID,
		FromUsername:  from,
		ToUsername:    to,
		Status:        models.InvitePending,
		Proof:         datatypes.NewJSONType(proof),
		CreatedAt:     time.Now().UTC(),
	}
	if err := ic.db.Create(invite).Error; err != nil {
		return nil, apperr.Persistence(err, "could not create invite")
	}
	return invite, nil
}

// AcceptResult reports the outcome for both parties. The acceptor and the
// sender are credited independently, so each side carries its own persisted
// flag: a partial failure is a recoverable inconsistency, never silent.
type AcceptResult struct {
	Invite        *models.CoopInvite `json:"invite"`
	Acceptor      *UnlockResult      `json:"acceptor"`
	Sender        *UnlockResult      `json:"sender"`
	AcceptorSaved bool               `json:"acceptor_saved"`
	SenderSaved   bool               `json:"sender_saved"`
}

// Accept resolves a pending invite and unlocks the achievement for both
// parties. Only the invited user may accept. The sender conceptually "did
// the deed" at send time but is credited here, at accept time. The invite's
// proof is carried to the accepting user's record; both sides credit the
// other as their co-op partner.
func (ic *InviteCoordinator) Accept(inviteID, actor string) (*AcceptResult, error) {
	invite, err := ic.GetInvite(inviteID)
	if err != nil {
		return nil, err
	}
	if actor != invite.ToUsername {
		return nil, apperr.Permission("only %s can accept this invite", invite.ToUsername)
	}
	if err := ic.resolve(invite, models.InviteAccepted); err != nil {
		return nil, err
	}

	acceptorResult, acceptorErr := ic.engine.unlock(invite.ToUsername, invite.AchievementID, invite.Proof.Data(), invite.FromUsername)
	senderResult, senderErr := ic.engine.unlock(invite.FromUsername, invite.AchievementID, nil, invite.ToUsername)

	result := &AcceptResult{
		Invite:        invite,
		Acceptor:      acceptorResult,
		Sender:        senderResult,
		AcceptorSaved: acceptorErr == nil,
		SenderSaved:   senderErr == nil,
	}

	switch {
	case acceptorErr != nil && senderErr != nil:
		log.Printf("co-op accept %s: neither side persisted (acceptor: %v, sender: %v)", invite.ID, acceptorErr, senderErr)
		return result, apperr.Persistence(acceptorErr, "co-op unlock was persisted for neither %s nor %s", invite.ToUsername, invite.FromUsername)
	case acceptorErr != nil:
		log.Printf("co-op accept %s: acceptor %s not persisted: %v", invite.ID, invite.ToUsername, acceptorErr)
		return result, apperr.Persistence(acceptorErr, "co-op unlock for %s (acceptor) was not persisted; %s (sender) was credited", invite.ToUsername, invite.FromUsername)
	case senderErr != nil:
		log.Printf("co-op accept %s: sender %s not persisted: %v", invite.ID, invite.FromUsername, senderErr)
		return result, apperr.Persistence(senderErr, "co-op unlock for %s (sender) was not persisted; %s (acceptor) was credited", invite.FromUsername, invite.ToUsername)
	}
	return result, nil
}

// Reject resolves a pending invite without unlocking anything for either
// party. Only the invited user may reject. The sender is free to send a new
// invite for the same achievement afterwards.
func (ic *InviteCoordinator) Reject(inviteID, actor string) (*models.CoopInvite, error) {
	invite, err := ic.GetInvite(inviteID)
	if err != nil {
		return nil, err
	}
	if actor != invite.ToUsername {
		return nil, apperr.Permission("only %s can reject this invite", invite.ToUsername)
	}
	if err := ic.resolve(invite, models.InviteRejected); err != nil {
		return nil, err
	}
	return invite, nil
}

// Cancel withdraws a pending invite. Only the sender may cancel.
func (ic *InviteCoordinator) Cancel(inviteID, actor string) (*models.CoopInvite, error) {
	invite, err := ic.GetInvite(inviteID)
	if err != nil {
		return nil, err
	}
	if actor != invite.FromUsername {
		return nil, apperr.Permission("only %s can cancel this invite", invite.FromUsername)
	}
	if err := ic.resolve(invite, models.InviteCancelled); err != nil {
		return nil, err
	}
	return invite, nil
}

// resolve moves a pending invite into a terminal status. The conditional
// update closes the window between two near-simultaneous resolutions: only
// one caller sees the row flip.
func (ic *InviteCoordinator) resolve(invite *models.CoopInvite, status models.InviteStatus) error {
	if invite.Terminal() {
		return apperr.InvalidState("invite %s is already %s", invite.ID, invite.Status)
	}

	now := time.Now().UTC()
	res := ic.db.Model(&models.CoopInvite{}).
		Where("id = ? AND status = ?", invite.ID, models.InvitePending).
		Updates(map[string]interface{}{"status": status, "resolved_at": now})
	if res.Error != nil {
		return apperr.Persistence(res.Error, "could not update invite %s", invite.ID)
	}
	if res.RowsAffected == 0 {
		return apperr.InvalidState("invite %s was already resolved", invite.ID)
	}

	invite.Status = status
	invite.ResolvedAt = &now
	return nil
}

// GetInvite loads an invite by id.
func (ic *InviteCoordinator) GetInvite(inviteID string) (*models.CoopInvite, error) {
	var invite models.CoopInvite
	err := ic.db.Where("id = ?", inviteID).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("invite %q does not exist", inviteID)
	}
	if err != nil {
		return nil, apperr.Persistence(err, "could not load invite %q", inviteID)
	}
	return &invite, nil
}

// PendingFor returns all pending invites addressed to username, newest
// first. Consumers poll this (the client re-fetches at most every 30s).
func (ic *InviteCoordinator) PendingFor(username string) ([]models.CoopInvite, error) {
	var invites []models.CoopInvite
	err := ic.db.Where("to_username = ? AND status = ?", username, models.InvitePending).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, apperr.Persistence(err, "could not list pending invites for %s", username)
	}
	return invites, nil
}

// PendingCount returns the badge count for username.
func (ic *InviteCoordinator) PendingCount(username string) (int64, error) {
	var count int64
	err := ic.db.Model(&models.CoopInvite{}).
		Where("to_username = ? AND status = ?", username, models.InvitePending).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Persistence(err, "could not count pending invites for %s", username)
	}
	return count, nil
}

// PendingFromSender returns the pending invite from a sender for one
// achievement, or nil. Used to block duplicate sends and to offer a
// "cancel existing" action.
func (ic *InviteCoordinator) PendingFromSender(from, achievementID string) (*models.CoopInvite, error) {
	var invite models.CoopInvite
	err := ic.db.Where("from_username = ? AND achievement_id = ? AND status = ?",
		from, achievementID, models.InvitePending).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence(err, "could not look up pending invite")
	}
	return &invite, nil
}

var inviteCoordinator *InviteCoordinator

// InitInviteCoordinator initializes the singleton coordinator.
func InitInviteCoordinator(db *gorm.DB) {
	inviteCoordinator = NewInviteCoordinator(db, GetProgressStore(), GetUnlockEngine(), GetCatalog())
}

// GetInviteCoordinator returns the initialized coordinator.
func GetInviteCoordinator() *InviteCoordinator {
	if inviteCoordinator == nil {
		log.Fatal("Invite coordinator not initialized. Call InitInviteCoordinator() first.")
	}
	return inviteCoordinator
}
