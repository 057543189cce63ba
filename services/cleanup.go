// services/cleanup.go - Background purge of old resolved invites
package services

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"unimap/models"

	"gorm.io/gorm"
)

// CleanupService periodically purges terminal invites past their retention
// window. Terminal records are immutable and excluded from every query, so
// keeping them forever only grows the table. Progress records are never
// touched.
type CleanupService struct {
	db        *gorm.DB
	interval  time.Duration
	retention time.Duration

	stop chan struct{}
	done chan struct{}
	// busy enforces skip-if-busy: a tick never overlaps a running sweep.
	busy sync.Mutex
}

var cleanupService *CleanupService

// InitCleanupService initializes the singleton cleanup service.
func InitCleanupService(db *gorm.DB) {
	interval := time.Duration(getEnvIntOr("CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute
	retention := time.Duration(getEnvIntOr("INVITE_RETENTION_DAYS", 90)) * 24 * time.Hour

	cleanupService = &CleanupService{
		db:        db,
		interval:  interval,
		retention: retention,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// GetCleanupService returns the initialized cleanup service.
func GetCleanupService() *CleanupService {
	return cleanupService
}

// Start launches the background sweep loop.
func (s *CleanupService) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if !s.busy.TryLock() {
					continue
				}
				if n, err := s.PurgeResolvedInvites(); err != nil {
					log.Printf("invite cleanup failed: %v", err)
				} else if n > 0 {
					log.Printf("🧹 Purged %d resolved invites older than %s", n, s.retention)
				}
				s.busy.Unlock()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
func (s *CleanupService) Stop() {
	close(s.stop)
	<-s.done
	s.busy.Lock()
	s.busy.Unlock()
}

// PurgeResolvedInvites deletes terminal invites resolved before the
// retention cutoff and returns how many rows went away.
func (s *CleanupService) PurgeResolvedInvites() (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	res := s.db.Where("status <> ? AND resolved_at < ?", models.InvitePending, cutoff).
		Delete(&models.CoopInvite{})
	return res.RowsAffected, res.Error
}

func getEnvIntOr(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return def
}
