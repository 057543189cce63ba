// services/progress.go - Progress store: the read/modify/persist cycle
package services

import (
	"errors"
	"log"

	"unimap/apperr"
	"unimap/models"

	lru "github.com/hashicorp/golang-lru"
	"gorm.io/gorm"
)

const progressCacheSize = 256

// ProgressStore owns the single-user read/modify/persist cycle. Reads are
// fronted by an LRU cache of recently touched records; every save replaces
// the whole row (last-writer-wins, see DESIGN.md).
type ProgressStore struct {
	db      *gorm.DB
	catalog *Catalog
	cache   *lru.Cache
}

func NewProgressStore(db *gorm.DB, catalog *Catalog) *ProgressStore {
	cache, err := lru.New(progressCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		log.Fatalf("Failed to create progress cache: %v", err)
	}
	return &ProgressStore{db: db, catalog: catalog, cache: cache}
}

// Get returns the user's Progress, creating the default record (root
// unlocked, everything else empty) on first touch. The returned document is
// a private copy; mutations only take effect through Save.
func (s *ProgressStore) Get(username string) (*models.Progress, error) {
	if cached, ok := s.cache.Get(username); ok {
		return cached.(*models.Progress).Clone(), nil
	}

	var progress models.Progress
	err := s.db.Where("username = ?", username).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.createDefault(username)
	}
	if err != nil {
		return nil, apperr.Persistence(err, "could not load progress for %s", username)
	}

	s.cache.Add(username, progress.Clone())
	return &progress, nil
}

func (s *ProgressStore) createDefault(username string) (*models.Progress, error) {
	fresh := models.NewProgress(username, s.catalog.RootID())
	if err := s.db.Create(fresh).Error; err != nil {
		// A concurrent first login may have won the unique-index race.
		var existing models.Progress
		if lookupErr := s.db.Where("username = ?", username).First(&existing).Error; lookupErr == nil {
			s.cache.Add(username, existing.Clone())
			return &existing, nil
		}
		return nil, apperr.Persistence(err, "could not create progress for %s", username)
	}
	s.cache.Add(username, fresh.Clone())
	return fresh, nil
}

// Save persists the whole document. A failed write is retried once; if the
// retry also fails the in-memory mutation is kept (and cached) with the
// Unsaved flag set, and a persistence error is returned for the caller to
// surface. Progress is never rolled back over a transient backend blip.
func (s *ProgressStore) Save(progress *models.Progress) error {
	progress.SchemaVersion = models.ProgressSchemaVersion

	err := s.db.Save(progress).Error
	if err != nil {
		log.Printf("progress save for %s failed, retrying: %v", progress.Username, err)
		err = s.db.Save(progress).Error
	}
	if err != nil {
		progress.Unsaved = true
		s.cache.Add(progress.Username, progress.Clone())
		return apperr.Persistence(err, "progress for %s was not persisted", progress.Username)
	}

	progress.Unsaved = false
	s.cache.Add(progress.Username, progress.Clone())
	return nil
}

// TopByXP returns the highest-xp records for the leaderboard.
func (s *ProgressStore) TopByXP(limit int) ([]models.Progress, error) {
	var records []models.Progress
	err := s.db.Order("total_xp DESC, username ASC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, apperr.Persistence(err, "could not load leaderboard")
	}
	return records, nil
}

// RankOf returns the 1-based leaderboard position of username.
func (s *ProgressStore) RankOf(username string) (int64, error) {
	progress, err := s.Get(username)
	if err != nil {
		return 0, err
	}
	var ahead int64
	err = s.db.Model(&models.Progress{}).
		Where("total_xp > ?", progress.TotalXP).
		Count(&ahead).Error
	if err != nil {
		return 0, apperr.Persistence(err, "could not compute rank for %s", username)
	}
	return ahead + 1, nil
}

var progressStore *ProgressStore

// InitProgressStore initializes the singleton store.
func InitProgressStore(db *gorm.DB) {
	progressStore = NewProgressStore(db, GetCatalog())
}

// GetProgressStore returns the initialized store.
func GetProgressStore() *ProgressStore {
	if progressStore == nil {
		log.Fatal("Progress store not initialized. Call InitProgressStore() first.")
	}
	return progressStore
}
