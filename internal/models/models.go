package models

import "time"

// User represents a registered account.
type User struct {
	ID                int
	Username          string
	Email             string
	PasswordHash      string
	AvatarURL         string
	IsAdmin           bool
	IsBanned          bool
	EmailVerified     bool
	VerificationToken string
	CreatedAt         time.Time
}

// Blip is a short feed post. Moderation never removes the row, it only
// sets IsDeleted; the row goes away only when the owning account does.
type Blip struct {
	ID        int
	UserID    int
	Content   string
	CreatedAt time.Time
	IsDeleted bool
}

// Reaction is one user's reaction to one blip. At most one row exists
// per (UserID, BlipID); a repeated reaction replaces Kind.
type Reaction struct {
	ID        int
	UserID    int
	BlipID    int
	Kind      string
	CreatedAt time.Time
}

// Report statuses.
const (
	ReportPending  = "pending"
	ReportResolved = "resolved"
)

// Report is an abuse report against a user, a blip, or both.
type Report struct {
	ID             int
	ReporterID     int
	ReportedUserID *int
	ReportedBlipID *int
	Reason         string
	Status         string
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}

// BlipView is a blip with denormalized author fields and live reaction
// counts, as served to clients.
type BlipView struct {
	ID            int            `json:"id"`
	UserID        int            `json:"user_id"`
	Content       string         `json:"content"`
	CreatedAt     time.Time      `json:"created_at"`
	IsDeleted     bool           `json:"is_deleted"`
	Username      string         `json:"username"`
	AvatarURL     string         `json:"avatar_url"`
	ReactionCount int            `json:"reaction_count"`
	Reactions     map[string]int `json:"reactions"`
}

// ReportView is a report with denormalized display fields for the admin view.
type ReportView struct {
	ID                  int        `json:"id"`
	ReporterID          int        `json:"reporter_id"`
	ReportedUserID      *int       `json:"reported_user_id"`
	ReportedBlipID      *int       `json:"reported_blip_id"`
	Reason              string     `json:"reason"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	ResolvedAt          *time.Time `json:"resolved_at"`
	ReporterUsername    string     `json:"reporter_username"`
	ReportedUsername    string     `json:"reported_username,omitempty"`
	ReportedBlipContent string     `json:"reported_blip_content,omitempty"`
}

// UserView is the public shape of a user record.
type UserView struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	IsAdmin   bool      `json:"is_admin"`
	IsBanned  bool      `json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
}

// Live event types pushed over the feed channel.
const (
	EventNewBlip        = "NEW_BLIP"
	EventReactionUpdate = "REACTION_UPDATE"
)

// Event is one feed-changing occurrence broadcast to live subscribers.
type Event struct {
	Type           string         `json:"type"`
	Blip           *BlipView      `json:"blip,omitempty"`
	BlipID         int            `json:"blip_id,omitempty"`
	UserID         int            `json:"user_id,omitempty"`
	ReactionType   string         `json:"reaction_type,omitempty"`
	ReactionCounts map[string]int `json:"reactions,omitempty"`
}
