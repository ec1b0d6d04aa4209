package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"vaultbot/internal/telegram/models"
)

func TestSessionCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	repo := NewSessionRepository(store)
	ctx := context.Background()

	session := &models.Session{
		OwnerID:           42,
		CreatedAt:         time.Now().Unix(),
		Protect:           true,
		AutoDeleteSeconds: 3600,
		Title:             "test batch",
		HeaderChatID:      -100123,
		HeaderMsgID:       7,
	}
	id, err := repo.Create(ctx, session)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero session id")
	}
	if session.ID != id {
		t.Fatalf("expected session.ID backfilled to %d, got %d", id, session.ID)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.Protect {
		t.Fatal("expected protect flag preserved")
	}
	if got.AutoDeleteSeconds != 3600 {
		t.Fatalf("expected auto delete 3600, got %d", got.AutoDeleteSeconds)
	}
	if got.Title != "test batch" {
		t.Fatalf("expected title preserved, got %q", got.Title)
	}
	if got.Revoked {
		t.Fatal("new session must not be revoked")
	}
}

func TestSessionSetDeepLink(t *testing.T) {
	store := newTestStore(t)
	repo := NewSessionRepository(store)
	ctx := context.Background()

	id, err := repo.Create(ctx, &models.Session{OwnerID: 1, CreatedAt: 1})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	link := models.BuildDeepLink("vault_bot", id)
	if err := repo.SetDeepLink(ctx, id, link); err != nil {
		t.Fatalf("set deep link failed: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.DeepLink != link {
		t.Fatalf("expected deep link %q, got %q", link, got.DeepLink)
	}
}

func TestSessionRevoke(t *testing.T) {
	store := newTestStore(t)
	repo := NewSessionRepository(store)
	ctx := context.Background()

	id, err := repo.Create(ctx, &models.Session{OwnerID: 1, CreatedAt: 1})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.Revoke(ctx, id); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.Revoked {
		t.Fatal("expected session revoked")
	}

	if err := repo.Revoke(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing session, got %v", err)
	}
}

func TestSessionDeleteCascadesFiles(t *testing.T) {
	store := newTestStore(t)
	sessions := NewSessionRepository(store)
	files := NewFileRepository(store)
	ctx := context.Background()

	id, err := sessions.Create(ctx, &models.Session{OwnerID: 1, CreatedAt: 1})
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		file := &models.File{SessionID: id, Position: i, FileType: models.FileKindPhoto, FileID: "f", VaultMsgID: i + 1}
		if err := files.Create(ctx, file); err != nil {
			t.Fatalf("create file %d failed: %v", i, err)
		}
	}

	if err := sessions.Delete(ctx, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := sessions.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
	left, err := files.ListBySession(ctx, id)
	if err != nil {
		t.Fatalf("list files failed: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected files cascade deleted, got %d left", len(left))
	}

	if err := sessions.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSessionListRecent(t *testing.T) {
	store := newTestStore(t)
	repo := NewSessionRepository(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, &models.Session{OwnerID: 1, CreatedAt: int64(100 + i)})
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	recent, err := repo.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(recent))
	}
	// 按创建时间倒序
	if recent[0].CreatedAt < recent[1].CreatedAt || recent[1].CreatedAt < recent[2].CreatedAt {
		t.Fatalf("expected newest first, got %d %d %d", recent[0].CreatedAt, recent[1].CreatedAt, recent[2].CreatedAt)
	}

	count, err := repo.CountAll(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 sessions, got %d", count)
	}
}
