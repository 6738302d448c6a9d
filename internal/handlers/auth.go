package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/amgad21/BlipVerse/internal/config"
	"github.com/amgad21/BlipVerse/internal/db"
	"github.com/amgad21/BlipVerse/internal/middleware"
	"github.com/amgad21/BlipVerse/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type AuthHandler struct {
	repo *db.Repository
	log  *log.Logger
	cfg  *config.Config
}

func NewAuthHandler(repo *db.Repository, log *log.Logger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{repo: repo, log: log, cfg: cfg}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and issues an email-verification token.
// Mail delivery itself is handled outside this service.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	username := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(req.Username)), " ", "")
	password := strings.TrimSpace(req.Password)

	if runeLen := utf8.RuneCountInString(username); runeLen < 3 || runeLen > 30 {
		writeMessage(w, http.StatusBadRequest, "Username must be 3-30 characters")
		return
	}
	if runeLen := utf8.RuneCountInString(password); runeLen < 6 || runeLen > 50 {
		writeMessage(w, http.StatusBadRequest, "Password must be 6-50 characters")
		return
	}
	if !emailRegex.MatchString(email) {
		writeMessage(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	isTaken, err := h.repo.IsEmailOrUsernameTaken(email, username)
	if err != nil {
		writeError(w, h.log, err, "Error creating user")
		return
	}
	if isTaken {
		writeMessage(w, http.StatusBadRequest, "Username or email already exists")
		return
	}

	user := &models.User{
		Username:          username,
		Email:             email,
		AvatarURL:         fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", username),
		VerificationToken: uuid.New().String(),
	}
	if err := h.repo.CreateUser(user, password); err != nil {
		writeError(w, h.log, err, "Error creating user")
		return
	}

	h.log.Printf("User registered: %s", username)
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

// Login checks credentials and sets the authToken cookie. Banned accounts
// cannot open new sessions.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.repo.GetUserByEmail(req.Email)
	if err != nil {
		if err != db.ErrNotFound {
			h.log.Printf("Error finding user: %v", err)
		}
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if user.IsBanned {
		writeMessage(w, http.StatusForbidden, "Account has been banned")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	expiresAt := time.Now().Add(h.cfg.JWTExpiration)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"is_admin": user.IsAdmin,
		"exp":      expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		writeError(w, h.log, err, "Error signing token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "authToken",
		Value:    signed,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.log.Printf("User logged in: %s", user.Username)
	writeJSON(w, http.StatusOK, userToView(user))
}

// Logout clears the auth cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   "authToken",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// Check returns the authenticated user's current record.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.repo.GetUserByID(userID)
	if err != nil {
		if err == db.ErrNotFound {
			writeMessage(w, http.StatusUnauthorized, "User not found")
			return
		}
		writeError(w, h.log, err, "Error checking authentication")
		return
	}
	writeJSON(w, http.StatusOK, userToView(user))
}

// VerifyEmail consumes a verification token from the registration email.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.repo.VerifyEmail(token); err != nil {
		if err == db.ErrNotFound {
			writeMessage(w, http.StatusBadRequest, "Invalid verification token")
			return
		}
		writeError(w, h.log, err, "Error verifying email")
		return
	}
	writeMessage(w, http.StatusOK, "Email verified successfully")
}

func userToView(u *models.User) *models.UserView {
	return &models.UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		IsAdmin:   u.IsAdmin,
		IsBanned:  u.IsBanned,
		CreatedAt: u.CreatedAt,
	}
}
