package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amgad21/BlipVerse/internal/db"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError maps repository sentinel errors to HTTP statuses. Anything
// unexpected is logged and reported as a 500 with the fallback message.
func writeError(w http.ResponseWriter, logger *log.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, db.ErrValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, db.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Account has been banned")
	case errors.Is(err, db.ErrReportResolved):
		writeMessage(w, http.StatusConflict, "Report already resolved")
	case errors.Is(err, db.ErrConflict):
		writeMessage(w, http.StatusConflict, "Conflict, please retry")
	default:
		logger.Printf("%s: %v", fallback, err)
		writeMessage(w, http.StatusInternalServerError, fallback)
	}
}

// encodeCursor packs a feed position into an opaque token.
func encodeCursor(c *db.Cursor) string {
	raw := fmt.Sprintf("%d:%d", c.CreatedAt.UnixNano(), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor unpacks a token produced by encodeCursor.
func decodeCursor(s string) (*db.Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return nil, errors.New("malformed cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, err
	}
	return &db.Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}
