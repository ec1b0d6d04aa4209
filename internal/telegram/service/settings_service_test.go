package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"

	"vaultbot/internal/telegram/models"
)

func TestPanelContentDefaults(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewSettingsService(repos.settings)

	start, err := svc.StartContent(context.Background())
	if err != nil {
		t.Fatalf("failed to load start content: %v", err)
	}
	if start.Text != defaultStartText || start.ImageFileID != "" {
		t.Fatalf("expected built-in start text without image, got %+v", start)
	}

	help, err := svc.HelpContent(context.Background())
	if err != nil {
		t.Fatalf("failed to load help content: %v", err)
	}
	if help.Text != defaultHelpText {
		t.Fatalf("expected built-in help text, got %q", help.Text)
	}
}

func TestSetTextAndImage(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewSettingsService(repos.settings)
	ctx := context.Background()

	if err := svc.SetText(ctx, "start", "自定义欢迎词 {first_name}"); err != nil {
		t.Fatalf("failed to set start text: %v", err)
	}
	if err := svc.SetImage(ctx, "start", "img-123"); err != nil {
		t.Fatalf("failed to set start image: %v", err)
	}

	content, err := svc.StartContent(ctx)
	if err != nil {
		t.Fatalf("failed to load start content: %v", err)
	}
	if content.Text != "自定义欢迎词 {first_name}" || content.ImageFileID != "img-123" {
		t.Fatalf("custom panel content not returned: %+v", content)
	}

	// help 面板不受 start 面板影响
	help, err := svc.HelpContent(ctx)
	if err != nil {
		t.Fatalf("failed to load help content: %v", err)
	}
	if help.Text != defaultHelpText || help.ImageFileID != "" {
		t.Fatalf("help panel must stay untouched, got %+v", help)
	}
}

func TestSetTextRejectsUnknownTarget(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewSettingsService(repos.settings)

	if err := svc.SetText(context.Background(), "menu", "x"); err == nil {
		t.Fatal("expected unknown target to be rejected")
	}
	if err := svc.SetImage(context.Background(), "menu", "img"); err == nil {
		t.Fatal("expected unknown target to be rejected")
	}
}

func TestChannelListLimits(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewSettingsService(repos.settings)
	ctx := context.Background()

	for i := 0; i < models.MaxOptionalChannels; i++ {
		ref := models.ChannelRef{Name: fmt.Sprintf("@opt%d", i), Link: fmt.Sprintf("https://t.me/opt%d", i)}
		if err := svc.AddOptionalChannel(ctx, ref); err != nil {
			t.Fatalf("failed to add optional channel %d: %v", i, err)
		}
	}
	err := svc.AddOptionalChannel(ctx, models.ChannelRef{Name: "@over", Link: "https://t.me/over"})
	if !errors.Is(err, ErrChannelLimit) {
		t.Fatalf("expected ErrChannelLimit past %d optional channels, got %v", models.MaxOptionalChannels, err)
	}

	for i := 0; i < models.MaxForceChannels; i++ {
		ref := models.ChannelRef{Name: fmt.Sprintf("@force%d", i), Link: fmt.Sprintf("https://t.me/force%d", i)}
		if err := svc.AddForceChannel(ctx, ref); err != nil {
			t.Fatalf("failed to add force channel %d: %v", i, err)
		}
	}
	err = svc.AddForceChannel(ctx, models.ChannelRef{Name: "@over", Link: "https://t.me/over"})
	if !errors.Is(err, ErrChannelLimit) {
		t.Fatalf("expected ErrChannelLimit past %d force channels, got %v", models.MaxForceChannels, err)
	}
}

func TestClearChannels(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewSettingsService(repos.settings)
	ctx := context.Background()

	if err := svc.AddForceChannel(ctx, models.ChannelRef{Name: "@one", Link: "https://t.me/one"}); err != nil {
		t.Fatalf("failed to add channel: %v", err)
	}
	if err := svc.ClearForceChannels(ctx); err != nil {
		t.Fatalf("failed to clear channels: %v", err)
	}

	channels, err := svc.ForceChannels(ctx)
	if err != nil {
		t.Fatalf("failed to list channels: %v", err)
	}
	if len(channels) != 0 {
		t.Fatalf("expected empty list after clear, got %+v", channels)
	}

	// 清空后可以重新添加
	if err := svc.AddForceChannel(ctx, models.ChannelRef{Name: "@two", Link: "https://t.me/two"}); err != nil {
		t.Fatalf("failed to re-add channel after clear: %v", err)
	}
}

func TestChannelListToleratesMalformedData(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewSettingsService(repos.settings)
	ctx := context.Background()

	if err := repos.settings.Set(ctx, models.SettingForceChannels, "{not json"); err != nil {
		t.Fatalf("failed to plant malformed value: %v", err)
	}

	channels, err := svc.ForceChannels(ctx)
	if err != nil {
		t.Fatalf("malformed list must not error: %v", err)
	}
	if len(channels) != 0 {
		t.Fatalf("expected malformed list treated as empty, got %+v", channels)
	}
}

func TestEnsureDefaultsKeepsCustomText(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewSettingsService(repos.settings)
	ctx := context.Background()

	if err := svc.SetText(ctx, "start", "已有文案"); err != nil {
		t.Fatalf("failed to set text: %v", err)
	}
	if err := svc.EnsureDefaults(ctx); err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}

	start, err := svc.StartContent(ctx)
	if err != nil {
		t.Fatalf("failed to load start content: %v", err)
	}
	if start.Text != "已有文案" {
		t.Fatalf("EnsureDefaults must not overwrite custom text, got %q", start.Text)
	}

	// 未配置的 help 文案被补齐
	raw, err := repos.settings.Get(ctx, models.SettingHelpText)
	if err != nil {
		t.Fatalf("failed to read help text: %v", err)
	}
	if raw != defaultHelpText {
		t.Fatalf("expected default help text seeded, got %q", raw)
	}
}

func TestRecordBotUsername(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewSettingsService(repos.settings)
	ctx := context.Background()

	if err := svc.RecordBotUsername(ctx, "vault_bot"); err != nil {
		t.Fatalf("failed to record username: %v", err)
	}
	raw, err := repos.settings.Get(ctx, models.SettingBotUsername)
	if err != nil {
		t.Fatalf("failed to read username: %v", err)
	}
	if raw != "vault_bot" {
		t.Fatalf("expected stored username, got %q", raw)
	}
}
