package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amgad21/BlipVerse/internal/config"
	"github.com/amgad21/BlipVerse/internal/models"
)

// capturingPublisher records published events in order.
type capturingPublisher struct {
	events []models.Event
}

func (p *capturingPublisher) Publish(ev models.Event) {
	p.events = append(p.events, ev)
}

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(&config.Config{DBPath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations())
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createTestUser(t *testing.T, repo *Repository, username string, isAdmin bool) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		IsAdmin:  isAdmin,
	}
	require.NoError(t, repo.CreateUser(user, "password123"))
	return user
}

func TestCreateUserAndLookup(t *testing.T) {
	repo := setupTestRepo(t)

	user := createTestUser(t, repo, "alice", false)
	require.NotZero(t, user.ID)

	got, err := repo.GetUserByEmail("ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "alice", got.Username)
	require.False(t, got.IsBanned)

	taken, err := repo.IsEmailOrUsernameTaken("alice@example.com", "somebody")
	require.NoError(t, err)
	require.True(t, taken)

	_, err = repo.GetUserByID(9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserDuplicate(t *testing.T) {
	repo := setupTestRepo(t)

	createTestUser(t, repo, "alice", false)
	err := repo.CreateUser(&models.User{Username: "alice", Email: "other@example.com"}, "password123")
	require.ErrorIs(t, err, ErrConflict)
}

func TestVerifyEmail(t *testing.T) {
	repo := setupTestRepo(t)

	user := &models.User{Username: "alice", Email: "alice@example.com", VerificationToken: "tok-123"}
	require.NoError(t, repo.CreateUser(user, "password123"))

	require.ErrorIs(t, repo.VerifyEmail("wrong"), ErrNotFound)
	require.NoError(t, repo.VerifyEmail("tok-123"))

	got, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	require.True(t, got.EmailVerified)
}

func TestCreateBlipValidation(t *testing.T) {
	repo := setupTestRepo(t)
	user := createTestUser(t, repo, "alice", false)

	_, err := repo.CreateBlip(user.ID, "   ")
	require.ErrorIs(t, err, ErrValidation)

	_, err = repo.CreateBlip(user.ID, strings.Repeat("я", MaxBlipLength+1))
	require.ErrorIs(t, err, ErrValidation)

	// Exactly at the bound is fine.
	blip, err := repo.CreateBlip(user.ID, strings.Repeat("я", MaxBlipLength))
	require.NoError(t, err)
	require.Equal(t, user.ID, blip.UserID)

	blips, err := repo.ListBlips(nil, 10)
	require.NoError(t, err)
	require.Len(t, blips, 1)
}

func TestCreateBlipMissingUser(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.CreateBlip(42, "hello")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateBlipBannedUser(t *testing.T) {
	repo := setupTestRepo(t)
	pub := &capturingPublisher{}
	repo.SetPublisher(pub)

	user := createTestUser(t, repo, "alice", false)
	require.NoError(t, repo.BanUser(user.ID))

	_, err := repo.CreateBlip(user.ID, "hello")
	require.ErrorIs(t, err, ErrForbidden)

	blips, err := repo.ListBlips(nil, 10)
	require.NoError(t, err)
	require.Empty(t, blips)
	require.Empty(t, pub.events)

	// An unban lifts the restriction again.
	require.NoError(t, repo.UnbanUser(user.ID))
	_, err = repo.CreateBlip(user.ID, "hello")
	require.NoError(t, err)
}

func TestCreateBlipPublishesAfterCommit(t *testing.T) {
	repo := setupTestRepo(t)
	pub := &capturingPublisher{}
	repo.SetPublisher(pub)

	user := createTestUser(t, repo, "alice", false)
	blip, err := repo.CreateBlip(user.ID, "hello world")
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	require.Equal(t, models.EventNewBlip, ev.Type)
	require.NotNil(t, ev.Blip)
	require.Equal(t, blip.ID, ev.Blip.ID)
	require.Equal(t, "hello world", ev.Blip.Content)
	require.Equal(t, "alice", ev.Blip.Username)
}

func TestSetReactionReplacesKind(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)
	carol := createTestUser(t, repo, "carol", false)

	blip, err := repo.CreateBlip(alice.ID, "react to me")
	require.NoError(t, err)

	require.NoError(t, repo.SetReaction(bob.ID, blip.ID, "like"))
	require.NoError(t, repo.SetReaction(carol.ID, blip.ID, "love"))

	view, err := repo.GetBlipView(blip.ID)
	require.NoError(t, err)
	require.Equal(t, 2, view.ReactionCount)
	require.Equal(t, map[string]int{"like": 1, "love": 1}, view.Reactions)

	// A repeat from the same user replaces the kind, the count stays.
	require.NoError(t, repo.SetReaction(bob.ID, blip.ID, "haha"))

	view, err = repo.GetBlipView(blip.ID)
	require.NoError(t, err)
	require.Equal(t, 2, view.ReactionCount)
	require.Equal(t, map[string]int{"haha": 1, "love": 1}, view.Reactions)

	var rows int
	require.NoError(t, repo.db.QueryRow(
		"SELECT COUNT(*) FROM reactions WHERE user_id = ? AND blip_id = ?", bob.ID, blip.ID).Scan(&rows))
	require.Equal(t, 1, rows)
}

func TestSetReactionValidation(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	blip, err := repo.CreateBlip(alice.ID, "hello")
	require.NoError(t, err)

	require.ErrorIs(t, repo.SetReaction(alice.ID, blip.ID, "meh"), ErrValidation)
	require.ErrorIs(t, repo.SetReaction(alice.ID, 9999, "like"), ErrNotFound)

	// Soft-deleted blips no longer accept reactions.
	require.NoError(t, repo.SoftDeleteBlip(blip.ID))
	require.ErrorIs(t, repo.SetReaction(alice.ID, blip.ID, "like"), ErrNotFound)
}

func TestSetReactionActorChecks(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)
	blip, err := repo.CreateBlip(alice.ID, "hello")
	require.NoError(t, err)

	pub := &capturingPublisher{}
	repo.SetPublisher(pub)

	// A token can outlive its account; the row is simply gone.
	require.ErrorIs(t, repo.SetReaction(9999, blip.ID, "like"), ErrNotFound)

	require.NoError(t, repo.BanUser(bob.ID))
	require.ErrorIs(t, repo.SetReaction(bob.ID, blip.ID, "like"), ErrForbidden)

	view, err := repo.GetBlipView(blip.ID)
	require.NoError(t, err)
	require.Equal(t, 0, view.ReactionCount)
	require.Empty(t, pub.events)
}

func TestSetReactionPublishesCounts(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)
	blip, err := repo.CreateBlip(alice.ID, "hello")
	require.NoError(t, err)

	pub := &capturingPublisher{}
	repo.SetPublisher(pub)
	require.NoError(t, repo.SetReaction(bob.ID, blip.ID, "love"))

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	require.Equal(t, models.EventReactionUpdate, ev.Type)
	require.Equal(t, blip.ID, ev.BlipID)
	require.Equal(t, bob.ID, ev.UserID)
	require.Equal(t, "love", ev.ReactionType)
	require.Equal(t, map[string]int{"love": 1}, ev.ReactionCounts)
}

func TestListBlipsFiltersDeleted(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)

	first, err := repo.CreateBlip(alice.ID, "first")
	require.NoError(t, err)
	second, err := repo.CreateBlip(alice.ID, "second")
	require.NoError(t, err)

	require.NoError(t, repo.SoftDeleteBlip(first.ID))
	require.ErrorIs(t, repo.SoftDeleteBlip(9999), ErrNotFound)

	blips, err := repo.ListBlips(nil, 10)
	require.NoError(t, err)
	require.Len(t, blips, 1)
	require.Equal(t, second.ID, blips[0].ID)
}

func TestListBlipsCursorStableUnderInserts(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)

	var ids []int
	for _, content := range []string{"one", "two", "three", "four"} {
		blip, err := repo.CreateBlip(alice.ID, content)
		require.NoError(t, err)
		ids = append(ids, blip.ID)
	}

	page1, err := repo.ListBlips(nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Equal(t, ids[3], page1[0].ID)
	require.Equal(t, ids[2], page1[1].ID)

	// A newer blip lands between page fetches; the continuation must not
	// duplicate or skip anything already served.
	_, err = repo.CreateBlip(alice.ID, "five")
	require.NoError(t, err)

	last := page1[len(page1)-1]
	page2, err := repo.ListBlips(&Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.Equal(t, ids[1], page2[0].ID)
	require.Equal(t, ids[0], page2[1].ID)
}

func TestCreateReportValidation(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)

	_, err := repo.CreateReport(alice.ID, nil, nil, "spam")
	require.ErrorIs(t, err, ErrValidation)

	_, err = repo.CreateReport(alice.ID, &bob.ID, nil, "   ")
	require.ErrorIs(t, err, ErrValidation)

	missing := 9999
	_, err = repo.CreateReport(alice.ID, &missing, nil, "spam")
	require.ErrorIs(t, err, ErrNotFound)

	report, err := repo.CreateReport(alice.ID, &bob.ID, nil, "spam")
	require.NoError(t, err)
	require.Equal(t, models.ReportPending, report.Status)

	pending, err := repo.ListReports(true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "alice", pending[0].ReporterUsername)
	require.Equal(t, "bob", pending[0].ReportedUsername)
}

func TestResolveReportBan(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)

	report, err := repo.CreateReport(alice.ID, &bob.ID, nil, "abusive")
	require.NoError(t, err)

	require.NoError(t, repo.ResolveReport(report.ID, ActionBan, &bob.ID, nil))

	banned, err := repo.GetUserByID(bob.ID)
	require.NoError(t, err)
	require.True(t, banned.IsBanned)

	all, err := repo.ListReports(false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, models.ReportResolved, all[0].Status)
	require.NotNil(t, all[0].ResolvedAt)

	pending, err := repo.ListReports(true)
	require.NoError(t, err)
	require.Empty(t, pending)

	// Terminal state: no second resolution.
	require.ErrorIs(t, repo.ResolveReport(report.ID, ActionDismiss, nil, nil), ErrReportResolved)
}

func TestResolveReportDeleteHidesBlip(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)

	blip, err := repo.CreateBlip(alice.ID, "offensive")
	require.NoError(t, err)
	report, err := repo.CreateReport(bob.ID, nil, &blip.ID, "offensive content")
	require.NoError(t, err)

	pub := &capturingPublisher{}
	repo.SetPublisher(pub)
	require.NoError(t, repo.ResolveReport(report.ID, ActionDelete, nil, &blip.ID))

	blips, err := repo.ListBlips(nil, 10)
	require.NoError(t, err)
	require.Empty(t, blips)

	// Moderation deletions are not broadcast.
	require.Empty(t, pub.events)

	// The row survives, only flagged.
	var deleted bool
	require.NoError(t, repo.db.QueryRow(
		"SELECT is_deleted FROM blips WHERE id = ?", blip.ID).Scan(&deleted))
	require.True(t, deleted)
}

func TestResolveReportDismiss(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)

	report, err := repo.CreateReport(alice.ID, &bob.ID, nil, "looks fine actually")
	require.NoError(t, err)
	require.NoError(t, repo.ResolveReport(report.ID, ActionDismiss, nil, nil))

	user, err := repo.GetUserByID(bob.ID)
	require.NoError(t, err)
	require.False(t, user.IsBanned)
}

func TestResolveReportMissingTargetRollsBack(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)

	report, err := repo.CreateReport(alice.ID, &bob.ID, nil, "spam")
	require.NoError(t, err)

	missing := 9999
	require.ErrorIs(t, repo.ResolveReport(report.ID, ActionBan, &missing, nil), ErrNotFound)

	// The whole unit rolled back: the report is still pending.
	pending, err := repo.ListReports(true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, models.ReportPending, pending[0].Status)
	require.Nil(t, pending[0].ResolvedAt)
}

func TestResolveReportInvalidInput(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)

	report, err := repo.CreateReport(alice.ID, &bob.ID, nil, "spam")
	require.NoError(t, err)

	require.ErrorIs(t, repo.ResolveReport(report.ID, "escalate", nil, nil), ErrValidation)
	require.ErrorIs(t, repo.ResolveReport(report.ID, ActionBan, nil, nil), ErrValidation)
	require.ErrorIs(t, repo.ResolveReport(9999, ActionDismiss, nil, nil), ErrNotFound)
}

func TestDeleteUserCascade(t *testing.T) {
	repo := setupTestRepo(t)
	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)

	aliceBlip, err := repo.CreateBlip(alice.ID, "mine")
	require.NoError(t, err)
	bobBlip, err := repo.CreateBlip(bob.ID, "bobs")
	require.NoError(t, err)

	// Rows referencing alice from every direction.
	require.NoError(t, repo.SetReaction(alice.ID, bobBlip.ID, "like"))
	require.NoError(t, repo.SetReaction(bob.ID, aliceBlip.ID, "love"))
	_, err = repo.CreateReport(alice.ID, &bob.ID, nil, "filed by alice")
	require.NoError(t, err)
	_, err = repo.CreateReport(bob.ID, &alice.ID, &aliceBlip.ID, "against alice")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteUserCascade(alice.ID))

	_, err = repo.GetUserByID(alice.ID)
	require.ErrorIs(t, err, ErrNotFound)

	for query, want := range map[string]int{
		"SELECT COUNT(*) FROM blips WHERE user_id = ?":    0,
		"SELECT COUNT(*) FROM reactions WHERE user_id = ?": 0,
		"SELECT COUNT(*) FROM reports WHERE reporter_id = ? OR reported_user_id = ?": 0,
	} {
		var n int
		args := []interface{}{alice.ID}
		if strings.Count(query, "?") == 2 {
			args = append(args, alice.ID)
		}
		require.NoError(t, repo.db.QueryRow(query, args...).Scan(&n))
		require.Equal(t, want, n, query)
	}

	// Bob and his blip are untouched, minus alice's reaction.
	view, err := repo.GetBlipView(bobBlip.ID)
	require.NoError(t, err)
	require.Equal(t, 0, view.ReactionCount)

	require.ErrorIs(t, repo.DeleteUserCascade(alice.ID), ErrNotFound)
}

func TestPublishOrderMatchesCommitOrder(t *testing.T) {
	repo := setupTestRepo(t)
	pub := &capturingPublisher{}
	repo.SetPublisher(pub)

	alice := createTestUser(t, repo, "alice", false)
	bob := createTestUser(t, repo, "bob", false)

	blip, err := repo.CreateBlip(alice.ID, "post then react")
	require.NoError(t, err)
	require.NoError(t, repo.SetReaction(bob.ID, blip.ID, "like"))

	require.Len(t, pub.events, 2)
	require.Equal(t, models.EventNewBlip, pub.events[0].Type)
	require.Equal(t, models.EventReactionUpdate, pub.events[1].Type)
}
