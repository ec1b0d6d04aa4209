package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"vaultbot/internal/sqlite"
	"vaultbot/internal/telegram/models"
)

// SQLSessionRepository 会话数据访问层
type SQLSessionRepository struct {
	store   *sqlite.Client
	builder sq.StatementBuilderType
}

// NewSessionRepository 创建会话 Repository
func NewSessionRepository(store *sqlite.Client) SessionRepository {
	return &SQLSessionRepository{
		store:   store,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Create 创建会话，返回新会话 ID
func (r *SQLSessionRepository) Create(ctx context.Context, session *models.Session) (int64, error) {
	query, args, err := r.builder.
		Insert("sessions").
		Columns("owner_id", "created_at", "protect", "auto_delete_seconds",
			"title", "revoked", "header_chat_id", "header_msg_id", "deep_link").
		Values(session.OwnerID, session.CreatedAt, session.Protect, session.AutoDeleteSeconds,
			session.Title, session.Revoked, session.HeaderChatID, session.HeaderMsgID, session.DeepLink).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "failed to build session insert")
	}

	res, err := r.store.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert session")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read session id")
	}
	session.ID = id
	return id, nil
}

// GetByID 根据 ID 获取会话
func (r *SQLSessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	query, args, err := r.builder.
		Select("id", "owner_id", "created_at", "protect", "auto_delete_seconds",
			"title", "revoked", "header_chat_id", "header_msg_id", "deep_link").
		From("sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build session query")
	}

	var session models.Session
	if err := r.store.DB().GetContext(ctx, &session, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "session %d", id)
		}
		return nil, errors.Wrapf(err, "failed to get session %d", id)
	}
	return &session, nil
}

// SetDeepLink 回填深链接
func (r *SQLSessionRepository) SetDeepLink(ctx context.Context, id int64, deepLink string) error {
	query, args, err := r.builder.
		Update("sessions").
		Set("deep_link", deepLink).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build deep link update")
	}

	res, err := r.store.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to set deep link of session %d", id)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.Wrapf(ErrNotFound, "session %d", id)
	}
	return nil
}

// Revoke 撤销会话
func (r *SQLSessionRepository) Revoke(ctx context.Context, id int64) error {
	query, args, err := r.builder.
		Update("sessions").
		Set("revoked", true).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build revoke update")
	}

	res, err := r.store.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to revoke session %d", id)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.Wrapf(ErrNotFound, "session %d", id)
	}
	return nil
}

// Delete 物理删除会话，文件级联删除
func (r *SQLSessionRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.builder.
		Delete("sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build session delete")
	}

	res, err := r.store.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to delete session %d", id)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.Wrapf(ErrNotFound, "session %d", id)
	}
	return nil
}

// ListRecent 按创建时间倒序列出会话
func (r *SQLSessionRepository) ListRecent(ctx context.Context, limit int) ([]*models.Session, error) {
	builder := r.builder.
		Select("id", "owner_id", "created_at", "protect", "auto_delete_seconds",
			"title", "revoked", "header_chat_id", "header_msg_id", "deep_link").
		From("sessions").
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build session list query")
	}

	sessions := []*models.Session{}
	if err := r.store.DB().SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	return sessions, nil
}

// CountAll 会话总数
func (r *SQLSessionRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.store.DB().GetContext(ctx, &count, "SELECT COUNT(*) FROM sessions"); err != nil {
		return 0, errors.Wrap(err, "failed to count sessions")
	}
	return count, nil
}
