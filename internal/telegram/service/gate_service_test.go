package service

import (
	"context"
	"testing"

	"vaultbot/internal/telegram/models"
	"vaultbot/internal/telegram/transport"
)

func newGateFixture(t *testing.T) (SettingsService, *fakeGateway, GateService) {
	t.Helper()
	repos := newTestRepos(t)
	settings := NewSettingsService(repos.settings)
	gw := newFakeGateway()
	return settings, gw, NewGateService(settings, gw)
}

func addForce(t *testing.T, settings SettingsService, refs ...models.ChannelRef) {
	t.Helper()
	for _, ref := range refs {
		if err := settings.AddForceChannel(context.Background(), ref); err != nil {
			t.Fatalf("failed to add force channel %s: %v", ref.Name, err)
		}
	}
}

func TestCheckAccessNoChannels(t *testing.T) {
	_, _, gate := newGateFixture(t)

	result, err := gate.CheckAccess(context.Background(), 42)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !result.Passed() {
		t.Fatalf("empty force list must pass, got %+v", result)
	}
}

func TestCheckAccessAllMember(t *testing.T) {
	settings, gw, gate := newGateFixture(t)
	addForce(t, settings,
		models.ChannelRef{Name: "@one", Link: "https://t.me/one"},
		models.ChannelRef{Name: "@two", Link: "https://t.me/two"},
	)
	gw.memberships = map[string]transport.MemberStatus{
		"https://t.me/one": transport.MemberStatusMember,
		"https://t.me/two": transport.MemberStatusMember,
	}

	result, err := gate.CheckAccess(context.Background(), 42)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !result.Passed() {
		t.Fatalf("member of all channels must pass, got %+v", result)
	}
}

func TestCheckAccessReportsOnlyMissingChannel(t *testing.T) {
	settings, gw, gate := newGateFixture(t)
	addForce(t, settings,
		models.ChannelRef{Name: "@joined", Link: "https://t.me/joined"},
		models.ChannelRef{Name: "@missing", Link: "https://t.me/missing"},
	)
	gw.memberships = map[string]transport.MemberStatus{
		"https://t.me/joined":  transport.MemberStatusMember,
		"https://t.me/missing": transport.MemberStatusNotMember,
	}

	result, err := gate.CheckAccess(context.Background(), 42)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if result.Passed() {
		t.Fatal("missing membership must block")
	}
	if len(result.Missing) != 1 || result.Missing[0].Name != "@missing" {
		t.Fatalf("expected exactly the unjoined channel, got %+v", result.Missing)
	}
	if len(result.Unverified) != 0 {
		t.Fatalf("expected no unverified channels, got %+v", result.Unverified)
	}
}

func TestCheckAccessUnverifiableChannelBlocks(t *testing.T) {
	settings, gw, gate := newGateFixture(t)
	addForce(t, settings, models.ChannelRef{Name: "@ghost", Link: "https://t.me/ghost"})
	gw.memberships = map[string]transport.MemberStatus{
		"https://t.me/ghost": transport.MemberStatusUnknown,
	}

	result, err := gate.CheckAccess(context.Background(), 42)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if result.Passed() {
		t.Fatal("unverifiable channel must block")
	}
	if len(result.Unverified) != 1 || result.Unverified[0].Name != "@ghost" {
		t.Fatalf("expected the unverifiable channel listed, got %+v", result.Unverified)
	}
}

func TestCheckAccessCollectsAllChannels(t *testing.T) {
	settings, gw, gate := newGateFixture(t)
	addForce(t, settings,
		models.ChannelRef{Name: "@first", Link: "https://t.me/first"},
		models.ChannelRef{Name: "@second", Link: "https://t.me/second"},
		models.ChannelRef{Name: "@third", Link: "https://t.me/third"},
	)
	gw.memberships = map[string]transport.MemberStatus{
		"https://t.me/first":  transport.MemberStatusNotMember,
		"https://t.me/second": transport.MemberStatusUnknown,
		"https://t.me/third":  transport.MemberStatusNotMember,
	}

	result, err := gate.CheckAccess(context.Background(), 42)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	// 一次检查报告全部缺失频道，不在第一个就停
	if len(result.Missing) != 2 {
		t.Fatalf("expected both unjoined channels reported, got %+v", result.Missing)
	}
	if len(result.Unverified) != 1 {
		t.Fatalf("expected the unverifiable channel reported, got %+v", result.Unverified)
	}
}
