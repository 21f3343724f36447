// internal/models/user.go
package models

type User struct {
	BaseModel
	MentorID    MentorID `json:"mentor_id" gorm:"size:64;not null;uniqueIndex:idx_user_mentor_email,priority:1"`
	Email       string   `json:"email" gorm:"size:255;not null;uniqueIndex:idx_user_mentor_email,priority:2"`
	Name        string   `json:"name" gorm:"size:255"`
	DisplayName string   `json:"display_name" gorm:"size:255"`
	AvatarURL   string   `json:"avatar_url" gorm:"size:1024"`
	RobotName   string   `json:"robot_name" gorm:"size:255"`
}

// PreferredName returns the display name, falling back to the plain name.
func (u *User) PreferredName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}
