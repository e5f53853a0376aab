package user

import (
	"time"
)

// User represents an account in the system. PasswordHash is empty for
// users who only ever signed in through an OAuth provider.
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:100"`
	Email        string `gorm:"uniqueIndex;not null;size:254"`
	PasswordHash string `gorm:"size:100"`
	Image        string `gorm:"size:500"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Claims represents the identity carried by a validated session token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// TokenPair represents access and refresh tokens issued after sign-in.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
