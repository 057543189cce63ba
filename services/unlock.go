// services/unlock.go - Unlock engine
package services

import (
	"log"

	"unimap/apperr"
	"unimap/models"
)

// UnlockEngine orchestrates unlocking one achievement for one user:
// validate, mutate, evaluate trophies, persist. All mutations are scoped to
// the session user; an attempt on behalf of a non-owning viewer is rejected
// with a permission error before it reaches the engine.
type UnlockEngine struct {
	store   *ProgressStore
	catalog *Catalog
}

func NewUnlockEngine(store *ProgressStore, catalog *Catalog) *UnlockEngine {
	return &UnlockEngine{store: store, catalog: catalog}
}

// UnlockResult reports the updated document plus the trophies this unlock
// earned, so the client can show a celebratory notice without re-deriving it.
type UnlockResult struct {
	Progress    *models.Progress `json:"progress"`
	NewTrophies []string         `json:"new_trophies"`
}

// Unlock unlocks achievementID for username. Unlocking an achievement that
// is already unlocked is a no-op that returns the current document and no
// trophies; repeated clicks never double-award xp.
//
// On a persistence failure the returned result is still populated: the
// mutation stays applied in memory (Progress.Unsaved is set) and the error
// is returned alongside for the caller to surface.
func (e *UnlockEngine) Unlock(username, achievementID string, proof *models.Proof) (*UnlockResult, error) {
	return e.unlock(username, achievementID, proof, "")
}

func (e *UnlockEngine) unlock(username, achievementID string, proof *models.Proof, partner string) (*UnlockResult, error) {
	def, ok := e.catalog.Get(achievementID)
	if !ok {
		return nil, apperr.NotFound("achievement %q does not exist", achievementID)
	}
	if err := proof.Validate(); err != nil {
		return nil, err
	}

	progress, err := e.store.Get(username)
	if err != nil {
		return nil, err
	}

	if progress.HasUnlocked(def.ID) {
		// A solo unlock between invite send and accept still earns the
		// partner credit; xp and trophies stay untouched. Plain repeated
		// unlocks (no partner) remain full no-ops.
		if partner != "" {
			if _, ok := progress.PartnerFor(def.ID); !ok {
				progress.SetPartner(def.ID, partner)
				if err := e.store.Save(progress); err != nil {
					return &UnlockResult{Progress: progress, NewTrophies: []string{}}, err
				}
			}
		}
		return &UnlockResult{Progress: progress, NewTrophies: []string{}}, nil
	}

	progress.AppendUnlock(def.ID, def.XP)
	if proof != nil {
		progress.SetProof(def.ID, *proof)
	}
	if partner != "" {
		progress.SetPartner(def.ID, partner)
	}

	newTrophies := EvaluateTrophies(progress, e.catalog)
	progress.AddTrophies(newTrophies)

	result := &UnlockResult{Progress: progress, NewTrophies: newTrophies}
	if err := e.store.Save(progress); err != nil {
		log.Printf("unlock of %q applied in memory for %s but not persisted", def.ID, username)
		return result, err
	}
	return result, nil
}

// AttachProof overwrites the proof for an already-unlocked achievement
// without touching unlock state or xp.
func (e *UnlockEngine) AttachProof(username, achievementID string, proof models.Proof) (*models.Progress, error) {
	def, ok := e.catalog.Get(achievementID)
	if !ok {
		return nil, apperr.NotFound("achievement %q does not exist", achievementID)
	}
	if err := proof.Validate(); err != nil {
		return nil, err
	}

	progress, err := e.store.Get(username)
	if err != nil {
		return nil, err
	}
	if !progress.HasUnlocked(def.ID) {
		return nil, apperr.InvalidState("achievement %q is not unlocked yet", def.ID)
	}

	progress.SetProof(def.ID, proof)
	if err := e.store.Save(progress); err != nil {
		return progress, err
	}
	return progress, nil
}

// RecordScan adds codeID to the collected set for achievementID. Duplicate
// codes are ignored without touching storage. Reaching the required count
// never unlocks the achievement by itself; unlocking stays an explicit user
// action.
func (e *UnlockEngine) RecordScan(username, achievementID, codeID string) (*models.Progress, error) {
	def, ok := e.catalog.Get(achievementID)
	if !ok {
		return nil, apperr.NotFound("achievement %q does not exist", achievementID)
	}
	if codeID == "" {
		return nil, apperr.Validation("scan code id is required")
	}
	if def.RequiredCodeCount == 0 {
		return nil, apperr.Validation("achievement %q does not collect scan codes", def.ID)
	}

	progress, err := e.store.Get(username)
	if err != nil {
		return nil, err
	}

	if !progress.AddScan(def.ID, codeID) {
		return progress, nil
	}
	if err := e.store.Save(progress); err != nil {
		return progress, err
	}
	return progress, nil
}

var unlockEngine *UnlockEngine

// InitUnlockEngine initializes the singleton engine.
func InitUnlockEngine() {
	unlockEngine = NewUnlockEngine(GetProgressStore(), GetCatalog())
}

// GetUnlockEngine returns the initialized engine.
func GetUnlockEngine() *UnlockEngine {
	if unlockEngine == nil {
		log.Fatal("Unlock engine not initialized. Call InitUnlockEngine() first.")
	}
	return unlockEngine
}
