// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/licensegate/internal/config"
	"github.com/javajoker/licensegate/internal/models"
)

type UserService struct {
	db     *gorm.DB
	tables config.TableConfig
}

// CreateUserRequest provisions a user record. Users are normally created by
// an external signup flow; this exists for operators and local setups.
type CreateUserRequest struct {
	MentorID    models.MentorID `json:"mentor_id" validate:"required"`
	Email       string          `json:"email" validate:"required,email"`
	Name        string          `json:"name,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	AvatarURL   string          `json:"avatar_url,omitempty" validate:"omitempty,url"`
	RobotName   string          `json:"robot_name,omitempty"`
}

type UserProfile struct {
	ID          uuid.UUID       `json:"id"`
	MentorID    models.MentorID `json:"mentor_id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name"`
	AvatarURL   string          `json:"avatar_url,omitempty"`
}

func NewUserService(db *gorm.DB, tables config.TableConfig) *UserService {
	return &UserService{
		db:     db,
		tables: tables,
	}
}

// FindByMentorAndEmail resolves the unique user for a login attempt. The
// email match is exact and case-sensitive.
func (s *UserService) FindByMentorAndEmail(ctx context.Context, mentorID models.MentorID, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Table(s.tables.Users).
		Where("mentor_id = ? AND email = ?", models.NormalizeMentorID(mentorID.String()), email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Table(s.tables.Users).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserProfile{
		ID:          user.ID,
		MentorID:    user.MentorID,
		Email:       user.Email,
		DisplayName: user.PreferredName(),
		AvatarURL:   user.AvatarURL,
	}, nil
}

func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	req.MentorID = models.NormalizeMentorID(req.MentorID.String())
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user := &models.User{
		MentorID:    req.MentorID,
		Email:       req.Email,
		Name:        req.Name,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		RobotName:   req.RobotName,
	}
	if err := s.db.WithContext(ctx).Table(s.tables.Users).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
