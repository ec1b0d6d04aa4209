package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"vaultbot/internal/sqlite"
	"vaultbot/internal/telegram/models"
)

// SQLDeleteJobRepository 延迟删除任务数据访问层
type SQLDeleteJobRepository struct {
	store   *sqlite.Client
	builder sq.StatementBuilderType
}

// NewDeleteJobRepository 创建任务 Repository
func NewDeleteJobRepository(store *sqlite.Client) DeleteJobRepository {
	return &SQLDeleteJobRepository{
		store:   store,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Create 持久化任务，返回任务 ID
func (r *SQLDeleteJobRepository) Create(ctx context.Context, job *models.DeleteJob) (int64, error) {
	query, args, err := r.builder.
		Insert("delete_jobs").
		Columns("session_id", "target_chat_id", "message_ids", "run_at", "created_at", "status").
		Values(job.SessionID, job.TargetChatID, job.MessageIDs, job.RunAt, job.CreatedAt, job.Status).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "failed to build job insert")
	}

	res, err := r.store.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert delete job")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read job id")
	}
	job.ID = id
	return id, nil
}

// GetByID 根据 ID 获取任务
func (r *SQLDeleteJobRepository) GetByID(ctx context.Context, id int64) (*models.DeleteJob, error) {
	query, args, err := r.builder.
		Select("id", "session_id", "target_chat_id", "message_ids", "run_at", "created_at", "status").
		From("delete_jobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build job query")
	}

	var job models.DeleteJob
	if err := r.store.DB().GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "delete job %d", id)
		}
		return nil, errors.Wrapf(err, "failed to get delete job %d", id)
	}
	return &job, nil
}

// ListScheduled 列出所有待执行任务
func (r *SQLDeleteJobRepository) ListScheduled(ctx context.Context) ([]*models.DeleteJob, error) {
	query, args, err := r.builder.
		Select("id", "session_id", "target_chat_id", "message_ids", "run_at", "created_at", "status").
		From("delete_jobs").
		Where(sq.Eq{"status": models.DeleteJobStatusScheduled}).
		OrderBy("run_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build scheduled job query")
	}

	jobs := []*models.DeleteJob{}
	if err := r.store.DB().SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list scheduled jobs")
	}
	return jobs, nil
}

// MarkDone 标记任务已执行
func (r *SQLDeleteJobRepository) MarkDone(ctx context.Context, id int64) error {
	query, args, err := r.builder.
		Update("delete_jobs").
		Set("status", models.DeleteJobStatusDone).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build job status update")
	}

	res, err := r.store.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to mark job %d done", id)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.Wrapf(ErrNotFound, "delete job %d", id)
	}
	return nil
}
