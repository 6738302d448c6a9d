package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/amgad21/BlipVerse/internal/models"
)

// Moderation actions accepted by ResolveReport.
const (
	ActionBan     = "ban"
	ActionDelete  = "delete"
	ActionDismiss = "dismiss"
)

// CreateReport files an abuse report against a user, a blip, or both.
// At least one target must be set and must exist.
func (r *Repository) CreateReport(reporterID int, reportedUserID, reportedBlipID *int, reason string) (*models.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if reportedUserID == nil && reportedBlipID == nil {
		return nil, fmt.Errorf("%w: must report either a user or a blip", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if reportedUserID != nil {
		if _, err := r.getUser("id = ?", *reportedUserID); err != nil {
			return nil, err
		}
	}
	if reportedBlipID != nil {
		exists, err := r.BlipExists(*reportedBlipID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
	}

	now := time.Now().UTC()
	res, err := r.db.Exec(
		`INSERT INTO reports (reporter_id, reported_user_id, reported_blip_id, reason, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		reporterID, reportedUserID, reportedBlipID, reason, models.ReportPending, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Report{
		ID:             int(id),
		ReporterID:     reporterID,
		ReportedUserID: reportedUserID,
		ReportedBlipID: reportedBlipID,
		Reason:         reason,
		Status:         models.ReportPending,
		CreatedAt:      now,
	}, nil
}

// ListReports returns reports with denormalized display fields, most recent
// first. With pendingOnly it returns only unresolved reports.
func (r *Repository) ListReports(pendingOnly bool) ([]*models.ReportView, error) {
	query := `SELECT r.id, r.reporter_id, r.reported_user_id, r.reported_blip_id,
                     r.reason, r.status, r.created_at, r.resolved_at,
                     u1.username,
                     COALESCE(u2.username, ''),
                     COALESCE(b.content, '')
              FROM reports r
              JOIN users u1 ON r.reporter_id = u1.id
              LEFT JOIN users u2 ON r.reported_user_id = u2.id
              LEFT JOIN blips b ON r.reported_blip_id = b.id`
	args := []interface{}{}
	if pendingOnly {
		query += " WHERE r.status = ?"
		args = append(args, models.ReportPending)
	}
	query += " ORDER BY r.created_at DESC, r.id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []*models.ReportView{}
	for rows.Next() {
		rep := &models.ReportView{}
		if err := rows.Scan(&rep.ID, &rep.ReporterID, &rep.ReportedUserID, &rep.ReportedBlipID,
			&rep.Reason, &rep.Status, &rep.CreatedAt, &rep.ResolvedAt,
			&rep.ReporterUsername, &rep.ReportedUsername, &rep.ReportedBlipContent); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// ResolveReport transitions a pending report to resolved and applies the
// requested action in the same transaction. Either every write commits or
// none do: a missing ban/delete target rolls the resolution back and the
// report stays pending.
func (r *Repository) ResolveReport(reportID int, action string, targetUserID, targetBlipID *int) error {
	switch action {
	case ActionBan:
		if targetUserID == nil {
			return fmt.Errorf("%w: ban requires a target user", ErrValidation)
		}
	case ActionDelete:
		if targetBlipID == nil {
			return fmt.Errorf("%w: delete requires a target blip", ErrValidation)
		}
	case ActionDismiss:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	var status string
	err = tx.QueryRow("SELECT status FROM reports WHERE id = ?", reportID).Scan(&status)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return ErrNotFound
	}
	if err != nil {
		tx.Rollback()
		return err
	}
	if status != models.ReportPending {
		tx.Rollback()
		return ErrReportResolved
	}

	if _, err := tx.Exec(
		"UPDATE reports SET status = ?, resolved_at = ? WHERE id = ?",
		models.ReportResolved, time.Now().UTC(), reportID); err != nil {
		tx.Rollback()
		return err
	}

	switch action {
	case ActionBan:
		res, err := tx.Exec("UPDATE users SET is_banned = 1 WHERE id = ?", *targetUserID)
		if err != nil {
			tx.Rollback()
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			tx.Rollback()
			if err != nil {
				return err
			}
			return ErrNotFound
		}
	case ActionDelete:
		if err := softDeleteBlip(tx, *targetBlipID); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// BanUser flags an account as banned. Existing tokens die on the next write.
func (r *Repository) BanUser(userID int) error {
	return r.setBanned(userID, true)
}

// UnbanUser clears the banned flag.
func (r *Repository) UnbanUser(userID int) error {
	return r.setBanned(userID, false)
}

func (r *Repository) setBanned(userID int, banned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.db.Exec("UPDATE users SET is_banned = ? WHERE id = ?", banned, userID)
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

// DeleteUserCascade removes a user together with every row that references
// them: their blips, their reactions and reactions on their blips, and
// reports they filed, received, or that target their blips. One transaction;
// a failure partway leaves everything untouched.
func (r *Repository) DeleteUserCascade(userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	// Order matters due to foreign keys.
	steps := []struct {
		query string
		args  []interface{}
	}{
		{`DELETE FROM reactions
          WHERE user_id = ? OR blip_id IN (SELECT id FROM blips WHERE user_id = ?)`,
			[]interface{}{userID, userID}},
		{`DELETE FROM reports
          WHERE reporter_id = ? OR reported_user_id = ?
             OR reported_blip_id IN (SELECT id FROM blips WHERE user_id = ?)`,
			[]interface{}{userID, userID, userID}},
		{`DELETE FROM blips WHERE user_id = ?`, []interface{}{userID}},
	}
	for _, step := range steps {
		if _, err := tx.Exec(step.query, step.args...); err != nil {
			tx.Rollback()
			return err
		}
	}

	res, err := tx.Exec("DELETE FROM users WHERE id = ?", userID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		tx.Rollback()
		if err != nil {
			return err
		}
		return ErrNotFound
	}

	return tx.Commit()
}
