package divecenter

import (
	"context"
	"fmt"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/shopspring/decimal"
)

// Summary is the dashboard report for one center.
type Summary struct {
	DiveCenterID  string          `json:"diveCenterId"`
	Customers     int64           `json:"customers"`
	Staff         int64           `json:"staff"`
	ActiveStaff   int64           `json:"activeStaff"`
	Trips         int64           `json:"trips"`
	Courses       int64           `json:"courses"`
	Equipment     int64           `json:"equipment"`
	FleetVehicles int64           `json:"fleetVehicles"`
	OpenTasks     int64           `json:"openTasks"`
	CourseRevenue decimal.Decimal `json:"courseRevenue"`
	RentalRevenue decimal.Decimal `json:"rentalRevenue"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

// Summary counts a center's dependents and totals its revenue. Course
// revenue is price times enrolled students; rental revenue is the sum of
// rental amounts.
func (s *Service) Summary(ctx context.Context, id auth.Identity, centerID string) (*Summary, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if centerID == "" {
		return nil, ErrCenterIDRequired
	}
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(&model.DiveCenter{}).Where("id = ? AND owner_id = ?", centerID, id.UserID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("look up dive center: %w", err)
	}
	if n == 0 {
		return nil, ErrCenterNotFound
	}

	out := &Summary{DiveCenterID: centerID}
	counts := []struct {
		model any
		where string
		args  []any
		dst   *int64
	}{
		{&model.Customer{}, "dive_center_id = ?", []any{centerID}, &out.Customers},
		{&model.Staff{}, "dive_center_id = ?", []any{centerID}, &out.Staff},
		{&model.Staff{}, "dive_center_id = ? AND status = ?", []any{centerID, model.StaffActive}, &out.ActiveStaff},
		{&model.DiveTrip{}, "dive_center_id = ?", []any{centerID}, &out.Trips},
		{&model.Course{}, "dive_center_id = ?", []any{centerID}, &out.Courses},
		{&model.Equipment{}, "dive_center_id = ?", []any{centerID}, &out.Equipment},
		{&model.FleetVehicle{}, "dive_center_id = ?", []any{centerID}, &out.FleetVehicles},
		{&model.Task{}, "dive_center_id = ? AND status <> ?", []any{centerID, "completed"}, &out.OpenTasks},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, c.args...).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("count %T: %w", c.model, err)
		}
	}

	var courses []model.Course
	if err := db.Preload("Students").Where("dive_center_id = ?", centerID).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	for _, c := range courses {
		out.CourseRevenue = out.CourseRevenue.Add(c.Price.Mul(decimal.NewFromInt(int64(len(c.Students)))))
	}

	var rentals []model.EquipmentRental
	if err := db.Where("equipment_id IN (?)",
		db.Model(&model.Equipment{}).Select("id").Where("dive_center_id = ?", centerID),
	).Find(&rentals).Error; err != nil {
		return nil, fmt.Errorf("load rentals: %w", err)
	}
	for _, r := range rentals {
		out.RentalRevenue = out.RentalRevenue.Add(r.Amount)
	}

	out.TotalRevenue = out.CourseRevenue.Add(out.RentalRevenue)
	return out, nil
}
