package entity

// User is a directory user. DeptID and PostID are nil when unassigned.
type User struct {
	ID       int64  `json:"user_id"`
	Username string `json:"username"`
	RealName string `json:"real_name"`
	Email    string `json:"email,omitempty"`
	DeptID   *int64 `json:"dept_id,omitempty"`
	PostID   *int64 `json:"post_id,omitempty"`
	Status   int    `json:"status"`
}

// IsActive returns true unless the account is disabled
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// InDept reports whether the user belongs to deptID
func (u *User) InDept(deptID int64) bool {
	return u.DeptID != nil && *u.DeptID == deptID
}

// Dept is a directory department
type Dept struct {
	ID   int64  `json:"dept_id"`
	Name string `json:"dept_name"`
}

// PermissionSet is the set of capability codes carried by a post
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from codes
func NewPermissionSet(codes ...string) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}

// Has reports whether code is in the set
func (s PermissionSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Post is a directory post with its resolved permissions
type Post struct {
	ID          int64         `json:"post_id"`
	Code        string        `json:"post_code"`
	Name        string        `json:"post_name"`
	Permissions PermissionSet `json:"-"`
}

// CanApprove reports whether holders of the post may act as approvers
func (p *Post) CanApprove() bool {
	return p != nil && p.Permissions.Has(PermissionApprovalReview)
}
