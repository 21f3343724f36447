// internal/services/user_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/licensegate/internal/models"
)

type UserServiceTestSuite struct {
	serviceSuite
}

func (s *UserServiceTestSuite) TestCreateAndFind() {
	user, err := s.users.CreateUser(s.ctx, &CreateUserRequest{
		MentorID: models.MentorID("0042"),
		Email:    "trader@example.com",
		Name:     "Jordan Lee",
	})
	s.Require().NoError(err)
	s.Equal(models.MentorID("42"), user.MentorID)

	found, err := s.users.FindByMentorAndEmail(s.ctx, "42", "trader@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)

	profile, err := s.users.GetProfile(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("Jordan Lee", profile.DisplayName)
}

func (s *UserServiceTestSuite) TestCreateRejectsBadEmail() {
	_, err := s.users.CreateUser(s.ctx, &CreateUserRequest{MentorID: "1", Email: "nope"})
	s.ErrorIs(err, ErrValidation)
}

func (s *UserServiceTestSuite) TestSameEmailUnderDifferentMentors() {
	for _, mentor := range []string{"1", "2"} {
		_, err := s.users.CreateUser(s.ctx, &CreateUserRequest{MentorID: models.MentorID(mentor), Email: "same@example.com"})
		s.Require().NoError(err)
	}

	_, err := s.users.CreateUser(s.ctx, &CreateUserRequest{MentorID: "1", Email: "same@example.com"})
	s.Error(err)
}

func (s *UserServiceTestSuite) TestUnknownUser() {
	_, err := s.users.FindByMentorAndEmail(s.ctx, "9", "ghost@example.com")
	s.ErrorIs(err, ErrUserNotFound)

	_, err = s.users.GetUserByID(s.ctx, uuid.New())
	s.ErrorIs(err, ErrUserNotFound)
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
