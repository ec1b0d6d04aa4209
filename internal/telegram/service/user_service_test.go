package service

import (
	"context"
	"testing"
	"time"

	"vaultbot/internal/telegram/models"
)

func TestTrackUserRefreshesLastSeen(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewUserService(repos.users, repos.sessions, repos.files)
	ctx := context.Background()

	before := time.Now().Unix()
	err := svc.TrackUser(ctx, &TelegramUserInfo{TelegramID: 42, Username: "alice", FirstName: "Alice"})
	if err != nil {
		t.Fatalf("failed to track user: %v", err)
	}

	user, err := repos.users.GetByID(ctx, 42)
	if err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if user.Username != "alice" || user.FirstName != "Alice" {
		t.Fatalf("user fields not stored: %+v", user)
	}
	if user.LastSeen < before {
		t.Fatalf("last_seen not refreshed: %d < %d", user.LastSeen, before)
	}

	// 二次跟踪更新资料而不是新建
	err = svc.TrackUser(ctx, &TelegramUserInfo{TelegramID: 42, Username: "alice2", FirstName: "Alice"})
	if err != nil {
		t.Fatalf("failed to re-track user: %v", err)
	}
	user, err = repos.users.GetByID(ctx, 42)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if user.Username != "alice2" {
		t.Fatalf("expected username updated, got %q", user.Username)
	}
}

func TestStatsCountsActiveWindow(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewUserService(repos.users, repos.sessions, repos.files)
	ctx := context.Background()

	now := time.Now().Unix()
	stale := now - int64(3*24*time.Hour/time.Second)
	users := []*models.User{
		{ID: 1, FirstName: "fresh", LastSeen: now},
		{ID: 2, FirstName: "fresh2", LastSeen: now - 3600},
		{ID: 3, FirstName: "stale", LastSeen: stale},
	}
	for _, u := range users {
		if err := repos.users.CreateOrUpdate(ctx, u); err != nil {
			t.Fatalf("failed to seed user %d: %v", u.ID, err)
		}
	}
	seedSession(t, repos, false, 0, models.FileKindText, models.FileKindPhoto)

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("failed to collect stats: %v", err)
	}

	if stats.TotalUsers != 3 {
		t.Fatalf("expected 3 users, got %d", stats.TotalUsers)
	}
	if stats.ActiveUsers != 2 {
		t.Fatalf("expected 2 active users within the window, got %d", stats.ActiveUsers)
	}
	if stats.TotalSessions != 1 {
		t.Fatalf("expected 1 session, got %d", stats.TotalSessions)
	}
	if stats.TotalFiles != 2 {
		t.Fatalf("expected 2 files, got %d", stats.TotalFiles)
	}
}
