package services

import (
	"fmt"
	"testing"
	"time"

	"unimap/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	// Keep the in-memory database on a single connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Progress{}, &models.CoopInvite{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// newTestCatalog builds a small map covering every category and kind. The
// General category holds two entries so no category trophy fires on the
// first unlock.
func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	defs := []models.AchievementDefinition{
		{ID: "nus_start", Title: "Matriculated", Category: models.CategoryGeneral, Kind: models.KindRoot, XP: 0},
		{ID: "student_card", ParentID: "nus_start", Title: "Card Carrier", Category: models.CategoryGeneral, Kind: models.KindTask, XP: 5},
		{ID: "first_lecture", ParentID: "nus_start", Title: "First Lecture", Category: models.CategoryAcademic, Kind: models.KindTask, XP: 10},
		{ID: "first_tutorial", ParentID: "first_lecture", Title: "Tutorial Time", Category: models.CategoryAcademic, Kind: models.KindTask, XP: 10},
		{ID: "office_hours", ParentID: "first_tutorial", Title: "Office Hours", Category: models.CategoryAcademic, Kind: models.KindGoal, XP: 20},
		{ID: "join_club", ParentID: "nus_start", Title: "Club Member", Category: models.CategorySocial, Kind: models.KindTask, XP: 15},
		{ID: "study_buddy", ParentID: "join_club", Title: "Study Buddies", Category: models.CategorySocial, Kind: models.KindCoop, XP: 30},
		{ID: "campus_explorer", ParentID: "nus_start", Title: "Campus Explorer", Category: models.CategoryExploration, Kind: models.KindChallenge, XP: 40, RequiredCodeCount: 3},
	}
	c, err := NewCatalog(defs)
	if err != nil {
		t.Fatalf("build test catalog: %v", err)
	}
	return c
}

type testEnv struct {
	db          *gorm.DB
	catalog     *Catalog
	store       *ProgressStore
	engine      *UnlockEngine
	coordinator *InviteCoordinator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	catalog := newTestCatalog(t)
	store := NewProgressStore(db, catalog)
	engine := NewUnlockEngine(store, catalog)
	return &testEnv{
		db:          db,
		catalog:     catalog,
		store:       store,
		engine:      engine,
		coordinator: NewInviteCoordinator(db, store, engine, catalog),
	}
}

// failSavesFor makes every update of username's progress row fail, simulating
// a backend outage scoped to that one record. Inserts still succeed, so the
// row can be created first and then refuse all further writes.
func (e *testEnv) failSavesFor(t *testing.T, username string) {
	t.Helper()
	stmt := fmt.Sprintf(`CREATE TRIGGER fail_%s BEFORE UPDATE ON progress_records
		WHEN NEW.username = '%s'
		BEGIN SELECT RAISE(ABORT, 'simulated write failure'); END`, username, username)
	if err := e.db.Exec(stmt).Error; err != nil {
		t.Fatalf("install failing trigger for %s: %v", username, err)
	}
}

func (e *testEnv) createUser(t *testing.T, username string) {
	t.Helper()
	user := models.User{Username: username, Password: "x", LastLogin: time.Now()}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
}
