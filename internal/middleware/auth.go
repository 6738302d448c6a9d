package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/amgad21/BlipVerse/internal/db"
)

type contextKey string

const (
	// UserIDKey holds the authenticated user's id in the request context.
	UserIDKey contextKey = "userID"
	// IsAdminKey holds the administrator flag from the token claims.
	IsAdminKey contextKey = "isAdmin"
)

// JWTAuth validates the auth token from the authToken cookie or an
// Authorization bearer header and stores the claims in the context.
func JWTAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				writeMessage(w, http.StatusForbidden, "Invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeMessage(w, http.StatusForbidden, "Invalid token claims")
				return
			}
			userID, ok := claims["user_id"].(float64)
			if !ok {
				writeMessage(w, http.StatusForbidden, "Invalid user ID in token")
				return
			}
			isAdmin, _ := claims["is_admin"].(bool)

			ctx := context.WithValue(r.Context(), UserIDKey, int(userID))
			ctx = context.WithValue(ctx, IsAdminKey, isAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActive re-reads the account before any write so a ban takes effect
// on the next attempt even while an old token is still technically valid.
func RequireActive(repo *db.Repository, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			user, err := repo.GetUserByID(userID)
			if err != nil {
				if err != db.ErrNotFound {
					logger.Printf("Error loading user %d: %v", userID, err)
				}
				writeMessage(w, http.StatusUnauthorized, "User not found")
				return
			}
			if user.IsBanned {
				writeMessage(w, http.StatusForbidden, "Account has been banned")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects callers whose token does not carry the admin flag.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			writeMessage(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserID extracts the user ID from context.
func GetUserID(ctx context.Context) int {
	userID, ok := ctx.Value(UserIDKey).(int)
	if !ok {
		return 0
	}
	return userID
}

// IsAdmin extracts the admin flag from context.
func IsAdmin(ctx context.Context) bool {
	isAdmin, ok := ctx.Value(IsAdminKey).(bool)
	return ok && isAdmin
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("authToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
