package models

import (
	"time"

	"gorm.io/gorm"
)

// Color preference constants
const (
	ColorUser    = "user"
	ColorPartner = "partner"
)

/** --------------------ENTITIES-------------------- */
// User represents the user entity
type User struct {
	gorm.Model
	Email       string `gorm:"uniqueIndex;not null" json:"email"` // Unique email for the user
	DisplayName string `gorm:"not null" json:"displayName"`
	Password    string `json:"-"` // Password is hashed and not returned in responses
	// ColorPreference picks which calendar color set the client renders for
	// this user's items, either 'user' or 'partner'.
	ColorPreference string `gorm:"not null;type:varchar(10);default:'user';check:color_preference IN ('user', 'partner')" json:"colorPreference"`
	Timezone        string `gorm:"not null;default:'UTC'" json:"timezone"`
	Language        string `gorm:"not null;type:varchar(5);default:'en';check:language IN ('en', 'zh')" json:"language"`
	IsOnboarded     bool   `gorm:"not null;default:false" json:"isOnboarded"`
	Avatar          string `json:"avatar,omitempty"` // Optional profile picture URL
}

/** -------------------- DTOs -------------------- */
// Request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName" binding:"required,min=1,max=50"`
	Password    string `json:"password" binding:"required,min=6"`
	Timezone    string `json:"timezone,omitempty"`
	Language    string `json:"language,omitempty" binding:"omitempty,oneof=en zh"`
}

// LoginRequest represents the request for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	DisplayName     *string `json:"displayName,omitempty" binding:"omitempty,min=1,max=50"`
	ColorPreference *string `json:"colorPreference,omitempty" binding:"omitempty,oneof=user partner"`
	Timezone        *string `json:"timezone,omitempty"`
	Language        *string `json:"language,omitempty" binding:"omitempty,oneof=en zh"`
	IsOnboarded     *bool   `json:"isOnboarded,omitempty"`
}

// Response
type UserResponse struct {
	ID              uint      `json:"id"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"displayName"`
	ColorPreference string    `json:"colorPreference"`
	Timezone        string    `json:"timezone"`
	Language        string    `json:"language"`
	IsOnboarded     bool      `json:"isOnboarded"`
	Avatar          string    `json:"avatar,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// LoginResponse represents the response for a successful login
// swagger:model
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// ToResponse converts a User entity into its API shape
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		ColorPreference: u.ColorPreference,
		Timezone:        u.Timezone,
		Language:        u.Language,
		IsOnboarded:     u.IsOnboarded,
		Avatar:          u.Avatar,
		CreatedAt:       u.CreatedAt,
	}
}
