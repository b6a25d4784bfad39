package models

import "time"

// TeacherAttendance is one persisted attendance row. The tuple
// (TeacherID, Date, TimeSlot) is unique; TimeSlot is empty for the day row.
// The validate tags describe what the engine may write; legacy rows read back
// with an empty status become Unset.
type TeacherAttendance struct {
	ID         string           `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TeacherID  string           `json:"teacher_id" gorm:"not null;type:uuid;uniqueIndex:idx_teacher_attendance_key,priority:1" validate:"required"`
	Date       time.Time        `json:"date" gorm:"not null;type:date;index;uniqueIndex:idx_teacher_attendance_key,priority:2" validate:"required"`
	TimeSlot   string           `json:"time_slot,omitempty" gorm:"not null;default:'';type:varchar(20);uniqueIndex:idx_teacher_attendance_key,priority:3" validate:"max=20"`
	Status     AttendanceStatus `json:"status" gorm:"not null;type:varchar(10)" validate:"required,oneof=present absent"`
	ClockIn    string           `json:"clock_in,omitempty" gorm:"type:varchar(5)" validate:"omitempty,datetime=15:04"`
	ClockOut   string           `json:"clock_out,omitempty" gorm:"type:varchar(5)" validate:"omitempty,datetime=15:04"`
	Hours      *float64         `json:"hours,omitempty" gorm:"type:numeric(4,2)" validate:"omitempty,gte=0,lte=24"`
	WeekID     string           `json:"week_id" gorm:"not null;index;type:varchar(32)" validate:"required"`
	RecordedBy *string          `json:"recorded_by,omitempty" gorm:"type:varchar(64)"`
	CreatedAt  time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName keeps the table name stable for raw SQL and migrations.
func (TeacherAttendance) TableName() string {
	return "teacher_attendances"
}
