package port

import (
	"context"

	"github.com/garyjia/approval-center/internal/domain/entity"
)

// Directory is the read-only view of users, departments and posts.
// Every lookup returns nil, nil on a miss.
type Directory interface {
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*entity.User, error)
	GetDeptByID(ctx context.Context, id int64) (*entity.Dept, error)
	// GetPostByID returns the post with its permission set resolved
	GetPostByID(ctx context.Context, id int64) (*entity.Post, error)
	GetPermissionCodesByPostID(ctx context.Context, postID int64) ([]string, error)
	// ListActiveUsersWithPost returns active users of a department who hold a post
	ListActiveUsersWithPost(ctx context.Context, deptID int64) ([]*entity.User, error)
}
