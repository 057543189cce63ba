package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"unimap/apperr"
	"unimap/database"
	"unimap/middleware"
	"unimap/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestApp wires the real handler stack against an in-memory database,
// mirroring the route layout in main.go.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-test-secret-test-secret-test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	database.SetDB(db)
	database.RunMigrations()
	services.InitCatalog()
	services.InitProgressStore(db)
	services.InitUnlockEngine()
	services.InitInviteCoordinator(db)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *apperr.Error
			if errors.As(err, &appErr) {
				return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
					"success": false,
					"error":   appErr.Message,
					"kind":    apperr.KindName(appErr.Kind),
				})
			}
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(fiber.Map{"success": false, "error": fiberErr.Message})
			}
			return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
		},
	})

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/guest", GuestLogin)
	authGroup.Post("/login", Login)
	authGroup.Post("/register", Register)

	api.Get("/catalog", GetCatalog)
	api.Get("/catalog/:id", GetAchievement)
	api.Get("/leaderboard", GetLeaderboard)

	progressGroup := api.Group("/progress")
	progressGroup.Use(middleware.AuthMiddleware)
	progressGroup.Get("/", GetMyProgress)
	progressGroup.Post("/unlock", Unlock)
	progressGroup.Post("/proof", AttachProof)
	progressGroup.Post("/scan", RecordScan)
	progressGroup.Get("/:username", GetUserProgress)

	inviteGroup := api.Group("/invites")
	inviteGroup.Use(middleware.AuthMiddleware)
	inviteGroup.Post("/", SendInvite)
	inviteGroup.Get("/pending", GetPendingInvites)
	inviteGroup.Get("/pending/count", GetPendingInviteCount)
	inviteGroup.Get("/outgoing", GetOutgoingInvite)
	inviteGroup.Post("/:id/accept", AcceptInvite)
	inviteGroup.Post("/:id/reject", RejectInvite)
	inviteGroup.Post("/:id/cancel", CancelInvite)

	userGroup := api.Group("/users")
	userGroup.Use(middleware.AuthMiddleware)
	userGroup.Get("/me", GetCurrentUser)
	userGroup.Get("/search", SearchUsers)
	userGroup.Get("/rank", GetMyRank)
	userGroup.Get("/:username", GetUserProfile)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("%s %s: decode body: %v", method, path, err)
	}
	return resp.StatusCode, payload
}

func registerUser(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	status, payload := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username,
		"password": "correct-horse-battery",
	})
	if status != 200 {
		t.Fatalf("register %s: status %d, body %v", username, status, payload)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("register %s: no token in %v", username, payload)
	}
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice",
		"password": "correct-horse-battery",
	})
	if status != 200 {
		t.Fatalf("register: status %d, body %v", status, payload)
	}
	progress, _ := payload["progress"].(map[string]any)
	if progress == nil {
		t.Fatal("register response has no progress record")
	}
	unlocked, _ := progress["unlocked_ids"].([]any)
	if len(unlocked) != 1 || unlocked[0] != "nus_start" {
		t.Errorf("fresh progress unlockedIds = %v", unlocked)
	}

	// The username is now taken.
	if status, _ := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice",
		"password": "correct-horse-battery",
	}); status != 409 {
		t.Errorf("duplicate register status = %d, want 409", status)
	}

	if status, _ := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": "alice",
		"password": "wrong-password-here",
	}); status != 401 {
		t.Errorf("bad login status = %d, want 401", status)
	}

	status, payload = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": "alice",
		"password": "correct-horse-battery",
	})
	if status != 200 || payload["token"] == "" {
		t.Errorf("login status = %d, body %v", status, payload)
	}
}

func TestGuestLoginCreatesProgress(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, http.MethodPost, "/api/auth/guest", "", map[string]any{})
	if status != 200 {
		t.Fatalf("guest login: status %d, body %v", status, payload)
	}
	user, _ := payload["user"].(map[string]any)
	if user == nil || user["is_guest"] != true {
		t.Errorf("guest user = %v", user)
	}
	if payload["progress"] == nil {
		t.Error("guest login returned no progress record")
	}
}

func TestProgressEndpointsRequireAuth(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/progress/", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Errorf("status without token = %d, want 401", resp.StatusCode)
	}
}

func TestUnlockEndpoint(t *testing.T) {
	app := newTestApp(t)
	token := registerUser(t, app, "alice")

	status, payload := doJSON(t, app, http.MethodPost, "/api/progress/unlock", token, map[string]any{
		"achievement_id": "first_lecture",
	})
	if status != 200 {
		t.Fatalf("unlock: status %d, body %v", status, payload)
	}
	progress, _ := payload["progress"].(map[string]any)
	if progress == nil {
		t.Fatal("no progress in unlock response")
	}
	if xp, _ := progress["total_xp"].(float64); xp != 10 {
		t.Errorf("total xp = %v, want 10", progress["total_xp"])
	}

	// Unknown achievement is a 404 with the typed kind in the body.
	status, payload = doJSON(t, app, http.MethodPost, "/api/progress/unlock", token, map[string]any{
		"achievement_id": "ghost",
	})
	if status != 404 || payload["kind"] != "not_found" {
		t.Errorf("unknown unlock: status %d, body %v", status, payload)
	}

	// A mutation addressed to another username is forbidden.
	status, _ = doJSON(t, app, http.MethodPost, "/api/progress/unlock", token, map[string]any{
		"username":       "bob",
		"achievement_id": "first_lecture",
	})
	if status != 403 {
		t.Errorf("foreign unlock status = %d, want 403", status)
	}
}

func TestInviteLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	aliceToken := registerUser(t, app, "alice")
	bobToken := registerUser(t, app, "bob")

	status, payload := doJSON(t, app, http.MethodPost, "/api/invites/", aliceToken, map[string]any{
		"achievement_id": "study_buddy",
		"to_username":    "bob",
	})
	if status != 201 {
		t.Fatalf("send invite: status %d, body %v", status, payload)
	}
	invite, _ := payload["invite"].(map[string]any)
	inviteID, _ := invite["id"].(string)
	if inviteID == "" {
		t.Fatalf("no invite id in %v", payload)
	}

	// The recipient sees it pending.
	status, payload = doJSON(t, app, http.MethodGet, "/api/invites/pending/count", bobToken, nil)
	if status != 200 || payload["count"] != float64(1) {
		t.Errorf("pending count: status %d, body %v", status, payload)
	}

	// The sender cannot accept their own invite.
	if status, _ := doJSON(t, app, http.MethodPost, "/api/invites/"+inviteID+"/accept", aliceToken, nil); status != 403 {
		t.Errorf("self accept status = %d, want 403", status)
	}

	status, payload = doJSON(t, app, http.MethodPost, "/api/invites/"+inviteID+"/accept", bobToken, nil)
	if status != 200 {
		t.Fatalf("accept: status %d, body %v", status, payload)
	}
	progress, _ := payload["progress"].(map[string]any)
	if progress == nil {
		t.Fatal("no progress in accept response")
	}
	if xp, _ := progress["total_xp"].(float64); xp != 30 {
		t.Errorf("acceptor xp = %v, want 30", progress["total_xp"])
	}

	// Both boards now show the unlock.
	for name, token := range map[string]string{"alice": aliceToken, "bob": bobToken} {
		status, payload = doJSON(t, app, http.MethodGet, "/api/progress/", token, nil)
		if status != 200 {
			t.Fatalf("get progress for %s: status %d", name, status)
		}
		p, _ := payload["progress"].(map[string]any)
		ids, _ := p["unlocked_ids"].([]any)
		found := false
		for _, id := range ids {
			if id == "study_buddy" {
				found = true
			}
		}
		if !found {
			t.Errorf("%s board missing study_buddy: %v", name, ids)
		}
	}

	// Accepting again hits the terminal-state guard.
	if status, _ := doJSON(t, app, http.MethodPost, "/api/invites/"+inviteID+"/accept", bobToken, nil); status != 409 {
		t.Errorf("double accept status = %d, want 409", status)
	}
}

func TestCatalogAndLeaderboardArePublic(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, http.MethodGet, "/api/catalog", "", nil)
	if status != 200 {
		t.Fatalf("catalog: status %d", status)
	}
	if payload["root"] != "nus_start" {
		t.Errorf("catalog root = %v", payload["root"])
	}

	if status, _ := doJSON(t, app, http.MethodGet, "/api/leaderboard", "", nil); status != 200 {
		t.Errorf("leaderboard status = %d, want 200", status)
	}
}
