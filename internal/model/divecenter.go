package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiveCenter is the tenant root. Every table below references it, directly
// or through a parent row.
type DiveCenter struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Location  string    `gorm:"type:text;not null;default:''" json:"location"`
	Email     string    `gorm:"type:text;not null;default:''" json:"email"`
	Contact   string    `gorm:"type:text;not null;default:''" json:"contact"`
	OwnerID   string    `gorm:"type:text;not null;index" json:"ownerId"`
	Owner     *User     `gorm:"foreignKey:OwnerID" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// BeforeCreate generates a UUID primary key if not set.
func (d *DiveCenter) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// Customer is a diver registered with a center.
type Customer struct {
	Base
	DiveCenterID       string      `gorm:"type:text;not null;index" json:"diveCenterId"`
	DiveCenter         *DiveCenter `gorm:"foreignKey:DiveCenterID" json:"-"`
	FullName           string      `gorm:"type:text;not null" json:"fullName"`
	Email              string      `gorm:"type:text;not null;default:''" json:"email"`
	Phone              string      `gorm:"type:text;not null;default:''" json:"phone"`
	CertificationLevel string      `gorm:"type:text;not null;default:''" json:"certificationLevel"`
}

// Task is a to-do item scoped to a center.
type Task struct {
	Base
	DiveCenterID string           `gorm:"type:text;not null;index" json:"diveCenterId"`
	DiveCenter   *DiveCenter      `gorm:"foreignKey:DiveCenterID" json:"-"`
	Title        string           `gorm:"type:text;not null" json:"title"`
	Description  string           `gorm:"type:text;not null;default:''" json:"description"`
	Status       string           `gorm:"type:text;not null;default:'pending'" json:"status"`
	Priority     string           `gorm:"type:text;not null;default:'medium'" json:"priority"`
	DueDate      *time.Time       `json:"dueDate,omitempty"`
	Assignments  []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
}

// TaskAssignment links a task to a staff member.
type TaskAssignment struct {
	Base
	TaskID  string `gorm:"type:text;not null;index" json:"taskId"`
	StaffID string `gorm:"type:text;not null;index" json:"staffId"`
	Staff   *Staff `gorm:"foreignKey:StaffID" json:"-"`
}

// DiveTrip is a scheduled outing.
type DiveTrip struct {
	Base
	DiveCenterID string          `gorm:"type:text;not null;index" json:"diveCenterId"`
	DiveCenter   *DiveCenter     `gorm:"foreignKey:DiveCenterID" json:"-"`
	Title        string          `gorm:"type:text;not null" json:"title"`
	Location     string          `gorm:"type:text;not null;default:''" json:"location"`
	DepartureAt  time.Time       `json:"departureAt"`
	Capacity     int             `gorm:"not null;default:0" json:"capacity"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Participants []Participant   `gorm:"foreignKey:TripID" json:"participants,omitempty"`
	Vehicles     []Vehicle       `gorm:"foreignKey:TripID" json:"vehicles,omitempty"`
}

// Participant is a diver booked onto a trip.
type Participant struct {
	Base
	TripID     string    `gorm:"type:text;not null;index" json:"tripId"`
	CustomerID *string   `gorm:"type:text;index" json:"customerId,omitempty"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"-"`
	Name       string    `gorm:"type:text;not null;default:''" json:"name"`
}

// Vehicle is transport booked for a single trip.
type Vehicle struct {
	Base
	TripID   string `gorm:"type:text;not null;index" json:"tripId"`
	Name     string `gorm:"type:text;not null" json:"name"`
	Kind     string `gorm:"type:text;not null;default:''" json:"kind"`
	Capacity int    `gorm:"not null;default:0" json:"capacity"`
}

// TripDiveMasterAssignment puts a staff member on a trip as dive master.
type TripDiveMasterAssignment struct {
	Base
	TripID  string    `gorm:"type:text;not null;index" json:"tripId"`
	Trip    *DiveTrip `gorm:"foreignKey:TripID" json:"-"`
	StaffID string    `gorm:"type:text;not null;index" json:"staffId"`
	Staff   *Staff    `gorm:"foreignKey:StaffID" json:"-"`
}

// TripInstructorAssignment puts a staff member on a trip as instructor.
type TripInstructorAssignment struct {
	Base
	TripID  string    `gorm:"type:text;not null;index" json:"tripId"`
	Trip    *DiveTrip `gorm:"foreignKey:TripID" json:"-"`
	StaffID string    `gorm:"type:text;not null;index" json:"staffId"`
	Staff   *Staff    `gorm:"foreignKey:StaffID" json:"-"`
}

// Course is a certification course offered by a center.
type Course struct {
	Base
	DiveCenterID string          `gorm:"type:text;not null;index" json:"diveCenterId"`
	DiveCenter   *DiveCenter     `gorm:"foreignKey:DiveCenterID" json:"-"`
	Title        string          `gorm:"type:text;not null" json:"title"`
	Level        string          `gorm:"type:text;not null;default:''" json:"level"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	StartDate    *time.Time      `json:"startDate,omitempty"`
	Students     []CourseStudent `gorm:"foreignKey:CourseID" json:"students,omitempty"`
}

// CourseStudent enrols a customer in a course.
type CourseStudent struct {
	Base
	CourseID   string    `gorm:"type:text;not null;index" json:"courseId"`
	CustomerID string    `gorm:"type:text;not null;index" json:"customerId"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"-"`
	Status     string    `gorm:"type:text;not null;default:'enrolled'" json:"status"`
}

// Equipment is a rentable inventory item.
type Equipment struct {
	Base
	DiveCenterID string            `gorm:"type:text;not null;index" json:"diveCenterId"`
	DiveCenter   *DiveCenter       `gorm:"foreignKey:DiveCenterID" json:"-"`
	Name         string            `gorm:"type:text;not null" json:"name"`
	Category     string            `gorm:"type:text;not null;default:''" json:"category"`
	SerialNumber string            `gorm:"type:text;not null;default:''" json:"serialNumber"`
	Condition    string            `gorm:"type:text;not null;default:'good'" json:"condition"`
	RentalRate   decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0" json:"rentalRate"`
	Rentals      []EquipmentRental `gorm:"foreignKey:EquipmentID" json:"rentals,omitempty"`
}

// TableName pins the table name; the default pluralisation is not used.
func (Equipment) TableName() string { return "equipment" }

// EquipmentRental records one rental of an equipment item.
type EquipmentRental struct {
	Base
	EquipmentID string          `gorm:"type:text;not null;index" json:"equipmentId"`
	CustomerID  *string         `gorm:"type:text;index" json:"customerId,omitempty"`
	Customer    *Customer       `gorm:"foreignKey:CustomerID" json:"-"`
	RentedAt    time.Time       `json:"rentedAt"`
	ReturnedAt  *time.Time      `json:"returnedAt,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
}

// FleetVehicle is a boat or vehicle owned by the center.
type FleetVehicle struct {
	Base
	DiveCenterID string                  `gorm:"type:text;not null;index" json:"diveCenterId"`
	DiveCenter   *DiveCenter             `gorm:"foreignKey:DiveCenterID" json:"-"`
	Name         string                  `gorm:"type:text;not null" json:"name"`
	Type         string                  `gorm:"type:text;not null;default:''" json:"type"`
	Capacity     int                     `gorm:"not null;default:0" json:"capacity"`
	Registration string                  `gorm:"type:text;not null;default:''" json:"registration"`
	Crew         []VehicleCrewAssignment `gorm:"foreignKey:VehicleID" json:"crew,omitempty"`
}

// VehicleCrewAssignment puts a staff member on a fleet vehicle's crew.
type VehicleCrewAssignment struct {
	Base
	VehicleID string `gorm:"type:text;not null;index" json:"vehicleId"`
	StaffID   string `gorm:"type:text;not null;index" json:"staffId"`
	Staff     *Staff `gorm:"foreignKey:StaffID" json:"-"`
	Role      string `gorm:"type:text;not null;default:''" json:"role"`
}
