package telegram

import (
	"sync"

	"github.com/pkg/errors"

	"vaultbot/internal/telegram/models"
)

// uploadPhase 上传会话所处阶段
type uploadPhase string

const (
	phaseIdle            uploadPhase = "idle"             // 没有进行中的上传
	phaseCollecting      uploadPhase = "collecting"       // 正在收集内容
	phaseAwaitingProtect uploadPhase = "awaiting_protect" // 等待保护选项按钮
	phaseAwaitingTimer   uploadPhase = "awaiting_timer"   // 等待自动删除时长回复
)

var (
	errNoUpload    = errors.New("no active upload")
	errEmptyUpload = errors.New("upload holds no items")
	errNoFinalize  = errors.New("no finalize in progress")
)

// PendingUpload 参数收集完毕、等待定稿的上传内容
type PendingUpload struct {
	Items   []models.UploadItem
	Protect bool
}

// UploadTracker 操作者上传会话的状态机。
// Bot 只有一个操作者，同一时间最多一个上传会话；
// 所有阶段转换都在锁内完成，定稿参数齐全前内容只存在内存里
type UploadTracker struct {
	mu          sync.Mutex
	phase       uploadPhase
	excludeText bool
	protect     bool
	items       []models.UploadItem
}

// NewUploadTracker 创建空闲状态的跟踪器
func NewUploadTracker() *UploadTracker {
	return &UploadTracker{phase: phaseIdle}
}

// Begin 开始新的上传会话，返回是否丢弃了未完成的旧会话
func (t *UploadTracker) Begin(excludeText bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	restarted := t.phase != phaseIdle
	t.phase = phaseCollecting
	t.excludeText = excludeText
	t.protect = false
	t.items = nil
	return restarted
}

// Phase 返回当前阶段
func (t *UploadTracker) Phase() uploadPhase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Append 收录一条内容，返回收录后的条数。
// 只在收集阶段生效；exclude_text 模式下纯文本被丢弃
func (t *UploadTracker) Append(item models.UploadItem) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != phaseCollecting {
		return len(t.items), false
	}
	if t.excludeText && item.Kind == models.FileKindText {
		return len(t.items), false
	}

	t.items = append(t.items, item)
	return len(t.items), true
}

// RequestFinalize 进入定稿流程，返回待定稿条数。
// 已在定稿流程中再次调用会回到保护选项这一步，方便操作者重来
func (t *UploadTracker) RequestFinalize() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase == phaseIdle {
		return 0, errNoUpload
	}
	if len(t.items) == 0 {
		return 0, errEmptyUpload
	}

	t.phase = phaseAwaitingProtect
	return len(t.items), nil
}

// SetProtect 记录保护选项，进入时长询问阶段
func (t *UploadTracker) SetProtect(protect bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != phaseAwaitingProtect {
		return errNoFinalize
	}

	t.protect = protect
	t.phase = phaseAwaitingTimer
	return nil
}

// Pending 返回待定稿内容的副本，状态保持不变。
// 定稿服务成功后再调用 Clear，失败时操作者可以重新输入时长
func (t *UploadTracker) Pending() (*PendingUpload, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != phaseAwaitingTimer {
		return nil, errNoFinalize
	}

	items := append([]models.UploadItem(nil), t.items...)
	return &PendingUpload{Items: items, Protect: t.protect}, nil
}

// Clear 结束当前上传会话，返回之前是否存在会话
func (t *UploadTracker) Clear() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	active := t.phase != phaseIdle
	t.phase = phaseIdle
	t.excludeText = false
	t.protect = false
	t.items = nil
	return active
}
