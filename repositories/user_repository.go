package repositories

import (
	"context"
	"time"

	"refurb-app/models"
	"refurb-app/types"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(DB *gorm.DB) *UserRepository {
	return &UserRepository{DB: DB}
}

// FindByLogin looks a user up by e-mail or username.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("email = ? OR username = ?", login, login).First(&user).Error
	return &user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id types.SnowflakeID) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).First(&user, "id = ?", id).Error
	return &user, err
}

func (r *UserRepository) CreateSession(ctx context.Context, session *models.UserSession) error {
	return r.DB.WithContext(ctx).Create(session).Error
}

// ActiveSession returns the session when it is active and not expired.
func (r *UserRepository) ActiveSession(ctx context.Context, sessionID string, now time.Time) (*models.UserSession, error) {
	var s models.UserSession
	err := r.DB.WithContext(ctx).
		Where("session_id = ? AND is_active = ? AND expires_at > ?", sessionID, true, now).
		First(&s).Error
	return &s, err
}

func (r *UserRepository) TouchSession(ctx context.Context, id uint, now time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.UserSession{}).Where("id = ?", id).Update("last_activity_at", now).Error
}

func (r *UserRepository) DeactivateSession(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.UserSession{}).
		Where("session_id = ? AND is_active = ?", sessionID, true).
		Updates(map[string]interface{}{"is_active": false, "last_activity_at": now})
	return res.RowsAffected > 0, res.Error
}
