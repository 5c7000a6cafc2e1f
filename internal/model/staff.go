package model

// StaffStatus is the employment state of a Staff row.
type StaffStatus string

const (
	StaffActive    StaffStatus = "active"
	StaffInactive  StaffStatus = "inactive"
	StaffFreelance StaffStatus = "freelance"
)

// Valid reports whether s is one of the known staff statuses.
func (s StaffStatus) Valid() bool {
	switch s {
	case StaffActive, StaffInactive, StaffFreelance:
		return true
	}
	return false
}

// Staff is a dive-center employee. StaffCode is the credential a signing-in
// user presents to bind their session to DiveCenterID.
type Staff struct {
	Base
	FullName     string            `gorm:"type:text;not null" json:"fullName"`
	Email        string            `gorm:"type:text;not null;default:''" json:"email"`
	Phone        string            `gorm:"type:text;not null;default:''" json:"phone"`
	RoleTitle    string            `gorm:"type:text;not null;default:''" json:"roleTitle"`
	StaffCode    string            `gorm:"type:text;not null;uniqueIndex" json:"staffCode"`
	DiveCenterID *string           `gorm:"type:text;index" json:"diveCenterId"`
	DiveCenter   *DiveCenter       `gorm:"foreignKey:DiveCenterID" json:"diveCenter,omitempty"`
	Status       StaffStatus       `gorm:"type:text;not null;default:'active'" json:"status"`
	Permissions  []StaffPermission `gorm:"foreignKey:StaffID" json:"permissions"`
}

// TableName pins the table name; the default pluralisation is not used.
func (Staff) TableName() string { return "staff" }

// PermissionNames flattens the loaded permission rows.
func (s *Staff) PermissionNames() []string {
	out := make([]string, 0, len(s.Permissions))
	for _, p := range s.Permissions {
		out = append(out, p.Permission)
	}
	return out
}

// StaffPermission grants one named permission to a staff member.
type StaffPermission struct {
	Base
	StaffID    string `gorm:"type:text;not null;index" json:"staffId"`
	Permission string `gorm:"type:text;not null" json:"permission"`
}
