package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vaultbot/internal/sqlite"
	"vaultbot/internal/telegram/models"
	"vaultbot/internal/telegram/repository"
	"vaultbot/internal/telegram/transport"
)

// testRepos 服务测试共用的真实 SQLite 仓库
type testRepos struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	files    repository.FileRepository
	settings repository.SettingRepository
}

func newTestRepos(t *testing.T) *testRepos {
	t.Helper()
	store, err := sqlite.NewClient(sqlite.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return &testRepos{
		users:    repository.NewUserRepository(store),
		sessions: repository.NewSessionRepository(store),
		files:    repository.NewFileRepository(store),
		settings: repository.NewSettingRepository(store),
	}
}

// gatewayCall 记录一次出站调用
type gatewayCall struct {
	op      string // text / copy / file / edit
	chatID  int64
	from    int64
	msgID   int
	kind    models.FileKind
	fileID  string
	caption string
	text    string
	protect bool
}

// fakeGateway 可配置的传输层替身，默认全部成功并返回递增消息 ID
type fakeGateway struct {
	transport.Gateway

	mu          sync.Mutex
	calls       []gatewayCall
	nextID      int
	username    string
	memberships map[string]transport.MemberStatus

	// 钩子只负责注入错误，成功路径统一走 record
	onSendText func(chatID int64, text string, protect bool) error
	onCopy     func(to, from int64, msgID int, caption string, protect bool) error
	onSendFile func(chatID int64, kind models.FileKind, fileID, caption string, protect bool) error
	onEditText func(chatID int64, messageID int, text string) error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextID: 100, username: "vault_bot"}
}

func (f *fakeGateway) record(call gatewayCall) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.calls = append(f.calls, call)
	return f.nextID
}

func (f *fakeGateway) callsOf(op string) []gatewayCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []gatewayCall
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeGateway) SendText(ctx context.Context, chatID int64, text string, protect bool) (int, error) {
	if f.onSendText != nil {
		if err := f.onSendText(chatID, text, protect); err != nil {
			return 0, err
		}
	}
	return f.record(gatewayCall{op: "text", chatID: chatID, text: text, caption: text, protect: protect}), nil
}

func (f *fakeGateway) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string, protect bool) (int, error) {
	if f.onCopy != nil {
		if err := f.onCopy(toChatID, fromChatID, messageID, caption, protect); err != nil {
			return 0, err
		}
	}
	return f.record(gatewayCall{op: "copy", chatID: toChatID, from: fromChatID, msgID: messageID, caption: caption, protect: protect}), nil
}

func (f *fakeGateway) SendByFileID(ctx context.Context, chatID int64, kind models.FileKind, fileID, caption string, protect bool) (int, error) {
	if f.onSendFile != nil {
		if err := f.onSendFile(chatID, kind, fileID, caption, protect); err != nil {
			return 0, err
		}
	}
	return f.record(gatewayCall{op: "file", chatID: chatID, kind: kind, fileID: fileID, caption: caption, protect: protect}), nil
}

func (f *fakeGateway) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if f.onEditText != nil {
		if err := f.onEditText(chatID, messageID, text); err != nil {
			return err
		}
	}
	f.record(gatewayCall{op: "edit", chatID: chatID, msgID: messageID, text: text})
	return nil
}

func (f *fakeGateway) GetMembership(ctx context.Context, chatRef string, userID int64) transport.MemberStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.memberships[chatRef]; ok {
		return status
	}
	return transport.MemberStatusMember
}

func (f *fakeGateway) Username(ctx context.Context) (string, error) {
	return f.username, nil
}

func (f *fakeGateway) UploadDocument(ctx context.Context, chatID int64, filename string, data io.Reader, caption string) (int, error) {
	return f.record(gatewayCall{op: "upload", chatID: chatID, text: filename, caption: caption}), nil
}

// fakeScheduler 记录注册的删除任务
type fakeScheduler struct {
	mu   sync.Mutex
	jobs []scheduledJob
	err  error
}

type scheduledJob struct {
	sessionID int64
	chatID    int64
	ids       []int
	runAt     time.Time
}

func (f *fakeScheduler) Schedule(ctx context.Context, sessionID, targetChatID int64, messageIDs []int, runAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	ids := append([]int(nil), messageIDs...)
	f.jobs = append(f.jobs, scheduledJob{sessionID: sessionID, chatID: targetChatID, ids: ids, runAt: runAt})
	return nil
}

func (f *fakeScheduler) scheduled() []scheduledJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduledJob(nil), f.jobs...)
}

// fakeSnapshot 记录备份触发次数
type fakeSnapshot struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSnapshot) Backup(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeSnapshot) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
