package db

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/amgad21/BlipVerse/internal/config"
	"github.com/amgad21/BlipVerse/internal/models"
)

// MaxBlipLength is the content bound in code points, after trimming.
const MaxBlipLength = 280

// reactionKinds is the set of accepted reaction tags.
var reactionKinds = map[string]bool{
	"like": true, "love": true, "haha": true,
	"wow": true, "sad": true, "angry": true,
}

// Publisher receives feed events after their write has committed.
type Publisher interface {
	Publish(models.Event)
}

// Repository provides methods for working with the database.
//
// All mutating methods take mu, so commits are serialized and events reach
// the publisher in exactly commit order.
type Repository struct {
	db  *sql.DB
	mu  sync.Mutex
	pub Publisher
}

// NewRepository creates a new repository.
func NewRepository(cfg *config.Config) (*Repository, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection also keeps :memory:
	// databases from splitting per connection.
	db.SetMaxOpenConns(1)
	return &Repository{db: db}, nil
}

// SetPublisher attaches the fanout hub. Passing nil disables publishing.
func (r *Repository) SetPublisher(p Publisher) {
	r.pub = p
}

func (r *Repository) publish(ev models.Event) {
	if r.pub != nil {
		r.pub.Publish(ev)
	}
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// isUniqueViolation reports whether err is the storage uniqueness backstop firing.
func isUniqueViolation(err error) bool {
	if sqlErr, ok := err.(sqlite3.Error); ok {
		return sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// CreateUser creates a new user with password hashing.
func (r *Repository) CreateUser(user *models.User, plainPassword string) error {
	user.Email = strings.ToLower(user.Email)
	user.Username = strings.ToLower(user.Username)
	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)

	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.db.Exec(
		`INSERT INTO users (username, email, password_hash, avatar_url, is_admin, verification_token)
         VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.AvatarURL, user.IsAdmin, user.VerificationToken)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = int(id)
	return nil
}

// IsEmailOrUsernameTaken checks if an email or username is already taken.
func (r *Repository) IsEmailOrUsernameTaken(email, username string) (bool, error) {
	email = strings.ToLower(email)
	username = strings.ToLower(username)
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM users WHERE email = ? OR username = ?", email, username).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(email string) (*models.User, error) {
	return r.getUser("email = ?", strings.ToLower(email))
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(userID int) (*models.User, error) {
	return r.getUser("id = ?", userID)
}

func (r *Repository) getUser(where string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(
		`SELECT id, username, email, password_hash, avatar_url, is_admin, is_banned,
                email_verified, verification_token, created_at
         FROM users WHERE `+where, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.AvatarURL,
			&user.IsAdmin, &user.IsBanned, &user.EmailVerified, &user.VerificationToken, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyEmail marks the account holding this verification token as verified.
func (r *Repository) VerifyEmail(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.db.Exec(
		"UPDATE users SET email_verified = 1 WHERE verification_token = ?", token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns all users, most recent first.
func (r *Repository) ListUsers() ([]*models.UserView, error) {
	rows, err := r.db.Query(
		`SELECT id, username, email, avatar_url, is_admin, is_banned, created_at
         FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.UserView{}
	for rows.Next() {
		u := &models.UserView{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.AvatarURL,
			&u.IsAdmin, &u.IsBanned, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateBlip validates and stores a new blip, then publishes it to live
// subscribers. The event carries the same denormalized view the feed serves.
func (r *Repository) CreateBlip(userID int, content string) (*models.BlipView, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < 1 || n > MaxBlipLength {
		return nil, fmt.Errorf("%w: content must be 1-%d characters", ErrValidation, MaxBlipLength)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	author, err := r.getUser("id = ?", userID)
	if err != nil {
		return nil, err
	}
	if author.IsBanned {
		return nil, ErrForbidden
	}

	res, err := r.db.Exec(
		"INSERT INTO blips (user_id, content, created_at) VALUES (?, ?, ?)",
		userID, content, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	view, err := r.getBlipView(int(id))
	if err != nil {
		return nil, err
	}
	r.publish(models.Event{Type: models.EventNewBlip, Blip: view})
	return view, nil
}

// SoftDeleteBlip flags a blip as deleted without removing the row.
// Deletion is not broadcast; clients see it on their next feed fetch.
func (r *Repository) SoftDeleteBlip(blipID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return softDeleteBlip(r.db, blipID)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func softDeleteBlip(e execer, blipID int) error {
	res, err := e.Exec("UPDATE blips SET is_deleted = 1 WHERE id = ?", blipID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// BlipExists checks that a blip exists and has not been soft-deleted.
func (r *Repository) BlipExists(blipID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM blips WHERE id = ? AND is_deleted = 0)", blipID).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}
	return exists, nil
}

// SetReaction records userID's reaction to a blip. The upsert is keyed by
// (user_id, blip_id): a repeated reaction replaces the kind and is never
// counted twice. The updated counts are published after commit.
func (r *Repository) SetReaction(userID, blipID int, kind string) error {
	if !reactionKinds[kind] {
		return fmt.Errorf("%w: unknown reaction type %q", ErrValidation, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A stale token may outlive its cascade-deleted account.
	actor, err := r.getUser("id = ?", userID)
	if err != nil {
		return err
	}
	if actor.IsBanned {
		return ErrForbidden
	}

	exists, err := r.BlipExists(blipID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	_, err = r.db.Exec(
		`INSERT INTO reactions (user_id, blip_id, reaction_type, created_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(user_id, blip_id)
         DO UPDATE SET reaction_type = excluded.reaction_type, created_at = excluded.created_at`,
		userID, blipID, kind, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	counts, err := r.reactionCounts(blipID)
	if err != nil {
		return err
	}
	r.publish(models.Event{
		Type:           models.EventReactionUpdate,
		BlipID:         blipID,
		UserID:         userID,
		ReactionType:   kind,
		ReactionCounts: counts,
	})
	return nil
}

// reactionCounts returns the per-kind reaction tally for one blip.
func (r *Repository) reactionCounts(blipID int) (map[string]int, error) {
	rows, err := r.db.Query(
		"SELECT reaction_type, COUNT(*) FROM reactions WHERE blip_id = ? GROUP BY reaction_type", blipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// Cursor marks a position in the feed: the (created_at, id) key of the last
// blip the caller has already seen.
type Cursor struct {
	CreatedAt time.Time
	ID        int
}

// ListBlips returns up to limit non-deleted blips older than the cursor,
// ordered by (created_at, id) descending. Keyset pagination keeps pages
// stable while newer blips are being inserted.
func (r *Repository) ListBlips(before *Cursor, limit int) ([]*models.BlipView, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT b.id, b.user_id, b.content, b.created_at, b.is_deleted,
                     u.username, u.avatar_url
              FROM blips b JOIN users u ON b.user_id = u.id
              WHERE b.is_deleted = 0`
	args := []interface{}{}
	if before != nil {
		query += ` AND (b.created_at < ? OR (b.created_at = ? AND b.id < ?))`
		args = append(args, before.CreatedAt, before.CreatedAt, before.ID)
	}
	query += ` ORDER BY b.created_at DESC, b.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blips := []*models.BlipView{}
	ids := []interface{}{}
	for rows.Next() {
		b := &models.BlipView{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Content, &b.CreatedAt, &b.IsDeleted,
			&b.Username, &b.AvatarURL); err != nil {
			return nil, err
		}
		b.Reactions = map[string]int{}
		blips = append(blips, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(blips) == 0 {
		return blips, nil
	}

	// One grouped query for the whole page instead of a tally per row.
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	crows, err := r.db.Query(
		`SELECT blip_id, reaction_type, COUNT(*) FROM reactions
         WHERE blip_id IN (`+placeholders+`) GROUP BY blip_id, reaction_type`, ids...)
	if err != nil {
		return nil, err
	}
	defer crows.Close()

	byID := make(map[int]*models.BlipView, len(blips))
	for _, b := range blips {
		byID[b.ID] = b
	}
	for crows.Next() {
		var blipID, n int
		var kind string
		if err := crows.Scan(&blipID, &kind, &n); err != nil {
			return nil, err
		}
		if b, ok := byID[blipID]; ok {
			b.Reactions[kind] = n
			b.ReactionCount += n
		}
	}
	return blips, crows.Err()
}

// getBlipView loads one blip with author fields and reaction counts.
func (r *Repository) getBlipView(blipID int) (*models.BlipView, error) {
	b := &models.BlipView{}
	err := r.db.QueryRow(
		`SELECT b.id, b.user_id, b.content, b.created_at, b.is_deleted,
                u.username, u.avatar_url
         FROM blips b JOIN users u ON b.user_id = u.id WHERE b.id = ?`, blipID).
		Scan(&b.ID, &b.UserID, &b.Content, &b.CreatedAt, &b.IsDeleted, &b.Username, &b.AvatarURL)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	counts, err := r.reactionCounts(blipID)
	if err != nil {
		return nil, err
	}
	b.Reactions = counts
	for _, n := range counts {
		b.ReactionCount += n
	}
	return b, nil
}

// GetBlipView loads one blip as served to clients.
func (r *Repository) GetBlipView(blipID int) (*models.BlipView, error) {
	return r.getBlipView(blipID)
}
