package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleClient UserRole = "client"
	UserRoleDriver UserRole = "driver"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleClient, UserRoleDriver:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusUnverified UserStatus = "unverified"
	UserStatusPending    UserStatus = "pending"
	UserStatusVerified   UserStatus = "verified"
	UserStatusSuspended  UserStatus = "suspended"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusUnverified, UserStatusPending, UserStatusVerified, UserStatusSuspended:
		return true
	}
	return false
}

type AuthProvider string

const (
	ProviderPassword AuthProvider = "password"
	ProviderGoogle   AuthProvider = "google"
)

type User struct {
	ID           string
	Email        string
	Phone        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	Provider     AuthProvider
	FirebaseUID  *string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

type UserFilter struct {
	Role   UserRole
	Status UserStatus
	Search string
	Limit  int
	Offset int
}

type Session struct {
	ID               string
	UserID           string
	DeviceID         string
	DeviceName       string
	RefreshTokenHash []byte
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	LastSeenAt       time.Time
	ExpiresAt        time.Time
}
