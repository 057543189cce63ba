// handlers/auth.go
package handlers

import (
	"fmt"
	"os"
	"time"

	"unimap/database"
	"unimap/models"
	"unimap/services"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type GuestLoginRequest struct {
	GuestName string `json:"guest_name,omitempty"`
}

type AuthResponse struct {
	Success  bool             `json:"success"`
	Token    string           `json:"token,omitempty"`
	User     *models.User     `json:"user,omitempty"`
	Progress *models.Progress `json:"progress,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Register creates a new account and its default Progress record (root
// achievement pre-unlocked).
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Invalid request body"})
	}

	if len(req.Username) < 3 {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Username must be at least 3 characters"})
	}
	if len(req.Password) < 8 {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Password must be at least 8 characters"})
	}

	db := database.GetDB()

	var existing models.User
	if err := db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		return c.Status(409).JSON(AuthResponse{Success: false, Error: "Username already taken"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to hash password"})
	}

	user := models.User{
		Username:    req.Username,
		Password:    string(hashed),
		DisplayName: req.DisplayName,
		LastLogin:   time.Now().UTC(),
	}
	if req.Email != "" {
		user.Email = &req.Email
	}

	if err := db.Create(&user).Error; err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to create account"})
	}

	progress, err := services.GetProgressStore().Get(user.Username)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to create progress record"})
	}

	token, err := generateToken(user)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to generate token"})
	}

	return c.JSON(AuthResponse{Success: true, Token: token, User: &user, Progress: progress})
}

// Login authenticates an existing account.
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Invalid request body"})
	}

	db := database.GetDB()

	var user models.User
	if err := db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		return c.Status(401).JSON(AuthResponse{Success: false, Error: "Invalid username or password"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(401).JSON(AuthResponse{Success: false, Error: "Invalid username or password"})
	}

	db.Model(&user).Update("last_login", time.Now().UTC())

	progress, err := services.GetProgressStore().Get(user.Username)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to load progress record"})
	}

	token, err := generateToken(user)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to generate token"})
	}

	return c.JSON(AuthResponse{Success: true, Token: token, User: &user, Progress: progress})
}

// GuestLogin creates a throwaway account so visitors can try the map before
// registering. Guests get a real Progress record like everyone else.
func GuestLogin(c *fiber.Ctx) error {
	var req GuestLoginRequest
	_ = c.BodyParser(&req)

	db := database.GetDB()

	guestName := req.GuestName
	if guestName == "" {
		guestName = fmt.Sprintf("Guest_%s", uuid.New().String()[:8])
	}

	user := models.User{
		Username:  guestName,
		Password:  "",
		IsGuest:   true,
		LastLogin: time.Now().UTC(),
	}

	if err := db.Create(&user).Error; err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to create guest account"})
	}

	progress, err := services.GetProgressStore().Get(user.Username)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to create progress record"})
	}

	token, err := generateToken(user)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to generate token"})
	}

	return c.JSON(AuthResponse{Success: true, Token: token, User: &user, Progress: progress})
}

func generateToken(user models.User) (string, error) {
	jwtSecret := os.Getenv("JWT_SECRET")

	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"is_guest": user.IsGuest,
		"exp":      time.Now().Add(7 * 24 * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
