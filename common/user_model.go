package common

const (
	RoleManager = "manager"
	RoleStudent = "student"
)

// LoginUser is a row of the application's login table.
type LoginUser struct {
	Id       int64  `gorm:"primaryKey;column:id"`
	Username string `gorm:"column:username"`
	Password string `gorm:"column:password"`
	Role     string `gorm:"column:role"`
}

func (LoginUser) TableName() string {
	return "login"
}

// SessionUser is what a session remembers about its user.
type SessionUser struct {
	Id       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
