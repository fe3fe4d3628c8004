package repository

import (
	"context"

	"ravencube/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines interface for user operations
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	FindByUsernames(ctx context.Context, usernames []string) ([]*models.User, error)
	UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "User")
	}
	return &user, nil
}

func (r *userRepository) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("auth_subject = ?", subject).First(&user).Error; err != nil {
		return nil, notFound(err, "User")
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "User")
	}
	return &user, nil
}

func (r *userRepository) FindByUsernames(ctx context.Context, usernames []string) ([]*models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	var users []*models.User
	err := r.db.WithContext(ctx).Select(models.UserSummaryColumns).
		Where("username IN ?", usernames).Find(&users).Error
	return users, err
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("User not found")
	}
	return nil
}
