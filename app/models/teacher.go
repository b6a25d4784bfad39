package models

import "time"

// Teacher is a roster entry. Attendance rows reference it by ID.
type Teacher struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"not null" validate:"required"`
	Surname   string    `json:"surname" gorm:"not null;index" validate:"required"`
	Subject   *string   `json:"subject,omitempty" gorm:"type:varchar(120)" validate:"omitempty,max=120"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// DisplayName renders the teacher the way reports list them: "Surname, Name".
func (t *Teacher) DisplayName() string {
	if t.Surname == "" {
		return t.Name
	}
	if t.Name == "" {
		return t.Surname
	}
	return t.Surname + ", " + t.Name
}

// SubjectOrDash returns the subject, or "-" when none is set.
func (t *Teacher) SubjectOrDash() string {
	if t.Subject == nil || *t.Subject == "" {
		return "-"
	}
	return *t.Subject
}
