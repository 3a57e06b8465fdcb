package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string // 사용자 권한 타입

const (
	RoleUser  UserRole = "user"  // 일반 사용자 권한
	RoleAdmin UserRole = "admin" // 관리자 권한
)

type AuthProvider string // 가입 경로

const (
	ProviderEmail AuthProvider = "email"
	ProviderLine  AuthProvider = "line"
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                              // 사용자 ID
	Email        *string        `gorm:"uniqueIndex" json:"email,omitempty"`                // 이메일 (LINE 가입자는 없을 수 있음)
	PasswordHash string         `json:"-"`                                                 // 비밀번호 해시
	Name         string         `gorm:"not null" json:"name"`                              // 이름
	Phone        string         `json:"phone"`                                             // 전화번호
	ExternalID   *string        `gorm:"uniqueIndex;size:128" json:"-"`                     // 외부 로그인 ID (예: line:U1234)
	Provider     AuthProvider   `gorm:"type:varchar(20);default:'email'" json:"provider"`  // 가입 경로
	Role         UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"`       // 권한
	CreatedAt    time.Time      `json:"created_at"`                                        // 생성 시각
	UpdatedAt    time.Time      `json:"updated_at"`                                        // 수정 시각
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                    // 삭제 시각(소프트 삭제)
}

func (User) TableName() string {
	return "users"
}

// EmailAddress returns the email or an empty string.
func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// MagicLink is a single-use passwordless sign-in token.
type MagicLink struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	Token     string    `gorm:"size:255;not null;unique;index" json:"-"` // 노출 금지
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func (MagicLink) TableName() string {
	return "magic_links"
}
