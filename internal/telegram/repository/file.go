package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"vaultbot/internal/sqlite"
	"vaultbot/internal/telegram/models"
)

// SQLFileRepository 文件数据访问层
type SQLFileRepository struct {
	store   *sqlite.Client
	builder sq.StatementBuilderType
}

// NewFileRepository 创建文件 Repository
func NewFileRepository(store *sqlite.Client) FileRepository {
	return &SQLFileRepository{
		store:   store,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Create 写入一条文件记录
func (r *SQLFileRepository) Create(ctx context.Context, file *models.File) error {
	query, args, err := r.builder.
		Insert("files").
		Columns("session_id", "position", "file_type", "file_id", "caption", "vault_msg_id").
		Values(file.SessionID, file.Position, file.FileType, file.FileID, file.Caption, file.VaultMsgID).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build file insert")
	}

	res, err := r.store.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to insert file for session %d", file.SessionID)
	}
	if id, err := res.LastInsertId(); err == nil {
		file.ID = id
	}
	return nil
}

// ListBySession 按 position 顺序列出会话的全部文件
func (r *SQLFileRepository) ListBySession(ctx context.Context, sessionID int64) ([]*models.File, error) {
	query, args, err := r.builder.
		Select("id", "session_id", "position", "file_type", "file_id", "caption", "vault_msg_id").
		From("files").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build file list query")
	}

	files := []*models.File{}
	if err := r.store.DB().SelectContext(ctx, &files, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to list files of session %d", sessionID)
	}
	return files, nil
}

// CountAll 文件总数
func (r *SQLFileRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.store.DB().GetContext(ctx, &count, "SELECT COUNT(*) FROM files"); err != nil {
		return 0, errors.Wrap(err, "failed to count files")
	}
	return count, nil
}
