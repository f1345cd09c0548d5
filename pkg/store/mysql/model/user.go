package model

import "time"

// UserRole access role
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User holds API access identity. Non-admin users additionally need
// can_view_data to read processed summaries.
type User struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"column:username;type:varchar(255);not null;uniqueIndex:uk_user_name" json:"username"`
	Email        string     `gorm:"column:email;type:varchar(255);not null;uniqueIndex:uk_user_email" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Role         UserRole   `gorm:"column:role;type:varchar(50);not null;default:user" json:"role"`
	CanViewData  bool       `gorm:"column:can_view_data;not null;default:false" json:"can_view_data"`
	APIKey       string     `gorm:"column:api_key;type:varchar(64);uniqueIndex:uk_user_api_key" json:"-"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
	LastLogin    *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanRead reports whether the user may read processed data.
func (u *User) CanRead() bool {
	return u.Role == RoleAdmin || u.CanViewData
}
