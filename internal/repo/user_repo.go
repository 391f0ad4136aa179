// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/avolkov/tg-mirror/internal/domain"
)

// GetUser fetches a user by Telegram id. Returns ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user row. Permission flags are the classification
// snapshot taken by the caller; they are not re-derived here.
func CreateUser(ctx context.Context, db *gorm.DB, id int64, username, firstName, lastName *string, isAdmin, isAllowed bool) (*domain.User, error) {
	u := &domain.User{
		ID:        id,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		IsAdmin:   isAdmin,
		IsAllowed: isAllowed,
		IsActive:  true,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUserPermissions adjusts the admin/allowed flags of an existing user.
// Nil arguments leave the corresponding flag untouched. Returns ErrNotFound
// when the user does not exist.
func UpdateUserPermissions(ctx context.Context, db *gorm.DB, id int64, isAdmin, isAllowed *bool) (*domain.User, error) {
	updates := map[string]any{}
	if isAdmin != nil {
		updates["is_admin"] = *isAdmin
	}
	if isAllowed != nil {
		updates["is_allowed"] = *isAllowed
	}
	if len(updates) > 0 {
		res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return GetUser(ctx, db, id)
}

// ListAdmins returns all active admin users.
func ListAdmins(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where("is_admin = ? AND is_active = ?", true, true).
		Find(&out).Error
	return out, err
}

// ListAllowedUsers returns all active users whose messages are eligible for
// mirroring.
func ListAllowedUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where("is_allowed = ? AND is_active = ?", true, true).
		Find(&out).Error
	return out, err
}
