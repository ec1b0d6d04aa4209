package repository

import (
	"context"
	"testing"

	"vaultbot/internal/telegram/models"
)

func TestSettingGetAbsent(t *testing.T) {
	store := newTestStore(t)
	repo := NewSettingRepository(store)

	value, err := repo.Get(context.Background(), models.SettingStartText)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "" {
		t.Fatalf("expected empty value for absent key, got %q", value)
	}
}

func TestSettingSetAndOverwrite(t *testing.T) {
	store := newTestStore(t)
	repo := NewSettingRepository(store)
	ctx := context.Background()

	if err := repo.Set(ctx, models.SettingStartText, "welcome"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := repo.Set(ctx, models.SettingStartText, "welcome v2"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	value, err := repo.Get(ctx, models.SettingStartText)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "welcome v2" {
		t.Fatalf("expected overwritten value, got %q", value)
	}
}

func TestSettingChannelListRoundTrip(t *testing.T) {
	store := newTestStore(t)
	repo := NewSettingRepository(store)
	ctx := context.Background()

	channels := []models.ChannelRef{
		{Name: "@alpha", Link: "https://t.me/alpha"},
		{Name: "-100123456", Link: ""},
	}
	encoded, err := models.EncodeChannelList(channels)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := repo.Set(ctx, models.SettingForceChannels, encoded); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	raw, err := repo.Get(ctx, models.SettingForceChannels)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	got, err := models.DecodeChannelList(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 2 || got[0].Name != "@alpha" || got[1].Name != "-100123456" {
		t.Fatalf("expected channel list preserved, got %+v", got)
	}
}
