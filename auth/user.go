package auth

import (
	"context"
	"errors"

	"github.com/bingLAN/table_view/common"
	"gorm.io/gorm"
)

// ErrInvalidCredentials means no login row matched.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore checks credentials against the login table.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore reads credentials from the login table in db.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Authenticate returns the session user for a matching login row.
func (u *UserStore) Authenticate(ctx context.Context, username, password string) (common.SessionUser, error) {
	var user common.LoginUser
	err := u.db.WithContext(ctx).
		Where("username = ? AND password = ?", username, password).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.SessionUser{}, ErrInvalidCredentials
	}
	if err != nil {
		return common.SessionUser{}, err
	}

	return common.SessionUser{Id: user.Id, Username: user.Username, Role: user.Role}, nil
}
