package models

// AttendanceStatus defines the possible status values for a teacher's day.
type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
	// Unset marks a persisted row that carried no status at all.
	Unset AttendanceStatus = "unset"
)

// DefaultStatus is used for every cell that has no persisted record.
const DefaultStatus = Absent

// Valid reports whether s is one of the known statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case Present, Absent, Unset:
		return true
	}
	return false
}

// ParseStatus maps stored text to a status. Empty or unknown text is Unset.
func ParseStatus(s string) AttendanceStatus {
	st := AttendanceStatus(s)
	if s == "" || !st.Valid() {
		return Unset
	}
	return st
}

// Role names carried by tokens from the login gate.
const (
	RoleAdmin    = "admin"
	RoleSecurity = "security"
)
