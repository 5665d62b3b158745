package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/entity"
	"github.com/garyjia/approval-center/internal/infrastructure/persistence/sqlite"
)

const userColumns = `user_id, username, real_name, email, dept_id, post_id, status`

// DirectoryRepository implements port.Directory over the sys_* tables
type DirectoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *sqlite.DB, logger *zap.Logger) port.Directory {
	return &DirectoryRepository{
		db:     db,
		logger: logger,
	}
}

// GetUserByID retrieves a user, nil when absent
func (r *DirectoryRepository) GetUserByID(ctx context.Context, id int64) (*entity.User, error) {
	user, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM sys_user WHERE user_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUsersByIDs retrieves users keyed by ID; missing IDs are skipped
func (r *DirectoryRepository) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*entity.User, error) {
	users := make(map[int64]*entity.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	in, args := inClause(ids)
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT `+userColumns+` FROM sys_user WHERE user_id IN `+in, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}

// GetDeptByID retrieves a department, nil when absent
func (r *DirectoryRepository) GetDeptByID(ctx context.Context, id int64) (*entity.Dept, error) {
	var dept entity.Dept
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT dept_id, dept_name FROM sys_dept WHERE dept_id = ?`, id).Scan(&dept.ID, &dept.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dept: %w", err)
	}
	return &dept, nil
}

// GetPostByID retrieves a post with its permission set resolved, nil when absent
func (r *DirectoryRepository) GetPostByID(ctx context.Context, id int64) (*entity.Post, error) {
	var post entity.Post
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT post_id, post_code, post_name FROM sys_post WHERE post_id = ?`, id).
		Scan(&post.ID, &post.Code, &post.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	codes, err := r.GetPermissionCodesByPostID(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Permissions = entity.NewPermissionSet(codes...)
	return &post, nil
}

// GetPermissionCodesByPostID lists the permission codes granted to a post
func (r *DirectoryRepository) GetPermissionCodesByPostID(ctx context.Context, postID int64) ([]string, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT p.permission_code
		FROM sys_post_permission pp
		JOIN sys_permission p ON p.permission_id = pp.permission_id
		WHERE pp.post_id = ?
		ORDER BY p.permission_code
	`, postID)
	if err != nil {
		r.logger.Error("Failed to get permission codes", zap.Int64("post_id", postID), zap.Error(err))
		return nil, fmt.Errorf("failed to get permission codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan permission code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ListActiveUsersWithPost returns active users of a department holding a post
func (r *DirectoryRepository) ListActiveUsersWithPost(ctx context.Context, deptID int64) ([]*entity.User, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM sys_user
		WHERE dept_id = ? AND status = ? AND post_id IS NOT NULL
		ORDER BY user_id
	`, deptID, entity.UserStatusActive)
	if err != nil {
		r.logger.Error("Failed to list department users", zap.Int64("dept_id", deptID), zap.Error(err))
		return nil, fmt.Errorf("failed to list department users: %w", err)
	}
	defer rows.Close()

	users := []*entity.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (*entity.User, error) {
	var (
		user           entity.User
		email          sql.NullString
		deptID, postID sql.NullInt64
	)
	if err := row.Scan(&user.ID, &user.Username, &user.RealName, &email, &deptID, &postID, &user.Status); err != nil {
		return nil, err
	}
	user.Email = email.String
	if deptID.Valid {
		user.DeptID = &deptID.Int64
	}
	if postID.Valid {
		user.PostID = &postID.Int64
	}
	return &user, nil
}

// Verify interface compliance
var _ port.Directory = (*DirectoryRepository)(nil)
