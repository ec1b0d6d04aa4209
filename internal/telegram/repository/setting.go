package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"vaultbot/internal/sqlite"
)

// SQLSettingRepository 配置数据访问层
type SQLSettingRepository struct {
	store   *sqlite.Client
	builder sq.StatementBuilderType
}

// NewSettingRepository 创建配置 Repository
func NewSettingRepository(store *sqlite.Client) SettingRepository {
	return &SQLSettingRepository{
		store:   store,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Get 读取配置值，不存在时返回空串
func (r *SQLSettingRepository) Get(ctx context.Context, key string) (string, error) {
	query, args, err := r.builder.
		Select("value").
		From("settings").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", errors.Wrap(err, "failed to build setting query")
	}

	var value string
	if err := r.store.DB().GetContext(ctx, &value, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrapf(err, "failed to get setting %q", key)
	}
	return value, nil
}

// Set 写入配置值
func (r *SQLSettingRepository) Set(ctx context.Context, key, value string) error {
	query, args, err := r.builder.
		Insert("settings").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value=excluded.value").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build setting upsert")
	}

	if _, err := r.store.DB().ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "failed to set setting %q", key)
	}
	return nil
}
