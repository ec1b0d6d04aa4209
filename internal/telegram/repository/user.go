package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"vaultbot/internal/sqlite"
	"vaultbot/internal/telegram/models"
)

// SQLUserRepository 用户数据访问层
type SQLUserRepository struct {
	store   *sqlite.Client
	builder sq.StatementBuilderType
}

// NewUserRepository 创建用户 Repository
func NewUserRepository(store *sqlite.Client) UserRepository {
	return &SQLUserRepository{
		store:   store,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// CreateOrUpdate 创建或更新用户
func (r *SQLUserRepository) CreateOrUpdate(ctx context.Context, user *models.User) error {
	query, args, err := r.builder.
		Insert("users").
		Columns("id", "username", "first_name", "last_name", "last_seen").
		Values(user.ID, user.Username, user.FirstName, user.LastName, user.LastSeen).
		Suffix("ON CONFLICT(id) DO UPDATE SET " +
			"username=excluded.username, first_name=excluded.first_name, " +
			"last_name=excluded.last_name, last_seen=excluded.last_seen").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build user upsert")
	}

	if _, err := r.store.DB().ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "failed to upsert user %d", user.ID)
	}
	return nil
}

// GetByID 根据 Telegram ID 获取用户
func (r *SQLUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query, args, err := r.builder.
		Select("id", "username", "first_name", "last_name", "last_seen").
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build user query")
	}

	var user models.User
	if err := r.store.DB().GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "user %d", id)
		}
		return nil, errors.Wrapf(err, "failed to get user %d", id)
	}
	return &user, nil
}

// ListIDs 列出全部用户 ID
func (r *SQLUserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	query, args, err := r.builder.
		Select("id").
		From("users").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build user id query")
	}

	ids := []int64{}
	if err := r.store.DB().SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list user ids")
	}
	return ids, nil
}

// CountAll 用户总数
func (r *SQLUserRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.store.DB().GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, errors.Wrap(err, "failed to count users")
	}
	return count, nil
}

// CountActiveSince 指定时间之后活跃过的用户数
func (r *SQLUserRepository) CountActiveSince(ctx context.Context, since int64) (int64, error) {
	query, args, err := r.builder.
		Select("COUNT(*)").
		From("users").
		Where(sq.GtOrEq{"last_seen": since}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "failed to build active user query")
	}

	var count int64
	if err := r.store.DB().GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "failed to count active users")
	}
	return count, nil
}
