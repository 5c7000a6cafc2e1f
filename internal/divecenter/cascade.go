package divecenter

import (
	"context"
	"fmt"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// cascadeIDs holds the primary keys of a center's direct children, collected
// before anything is deleted.
type cascadeIDs struct {
	center    string
	tasks     []string
	staff     []string
	trips     []string
	courses   []string
	equipment []string
	fleet     []string
	customers []string
}

// cascadeStep deletes the rows of one table whose column matches one of the
// collected id sets.
type cascadeStep struct {
	table  string
	model  any
	column string
	ids    func(*cascadeIDs) []string
}

// cascadeOrder is the only place the deletion order is defined. Children are
// always removed before the rows they reference.
var cascadeOrder = []cascadeStep{
	{"task_assignments", &model.TaskAssignment{}, "task_id", func(c *cascadeIDs) []string { return c.tasks }},
	{"tasks", &model.Task{}, "id", func(c *cascadeIDs) []string { return c.tasks }},
	{"staff_permissions", &model.StaffPermission{}, "staff_id", func(c *cascadeIDs) []string { return c.staff }},
	{"trip_dive_master_assignments", &model.TripDiveMasterAssignment{}, "trip_id", func(c *cascadeIDs) []string { return c.trips }},
	{"trip_instructor_assignments", &model.TripInstructorAssignment{}, "trip_id", func(c *cascadeIDs) []string { return c.trips }},
	{"participants", &model.Participant{}, "trip_id", func(c *cascadeIDs) []string { return c.trips }},
	{"vehicles", &model.Vehicle{}, "trip_id", func(c *cascadeIDs) []string { return c.trips }},
	{"dive_trips", &model.DiveTrip{}, "id", func(c *cascadeIDs) []string { return c.trips }},
	{"course_students", &model.CourseStudent{}, "course_id", func(c *cascadeIDs) []string { return c.courses }},
	{"courses", &model.Course{}, "id", func(c *cascadeIDs) []string { return c.courses }},
	{"equipment_rentals", &model.EquipmentRental{}, "equipment_id", func(c *cascadeIDs) []string { return c.equipment }},
	{"equipment", &model.Equipment{}, "id", func(c *cascadeIDs) []string { return c.equipment }},
	{"vehicle_crew_assignments", &model.VehicleCrewAssignment{}, "vehicle_id", func(c *cascadeIDs) []string { return c.fleet }},
	{"fleet_vehicles", &model.FleetVehicle{}, "id", func(c *cascadeIDs) []string { return c.fleet }},
	{"staff", &model.Staff{}, "id", func(c *cascadeIDs) []string { return c.staff }},
	{"customers", &model.Customer{}, "id", func(c *cascadeIDs) []string { return c.customers }},
	{"dive_centers", &model.DiveCenter{}, "id", func(c *cascadeIDs) []string { return []string{c.center} }},
}

// cascadePlan is the unit of work for deleting one dive center. It must be
// run inside a transaction.
type cascadePlan struct {
	ids     cascadeIDs
	removed map[string]int64
}

func newCascadePlan(centerID string) *cascadePlan {
	return &cascadePlan{ids: cascadeIDs{center: centerID}, removed: map[string]int64{}}
}

// collect loads the ids of every direct child of the center.
func (p *cascadePlan) collect(tx *gorm.DB) error {
	sets := []struct {
		model any
		dst   *[]string
	}{
		{&model.Task{}, &p.ids.tasks},
		{&model.Staff{}, &p.ids.staff},
		{&model.DiveTrip{}, &p.ids.trips},
		{&model.Course{}, &p.ids.courses},
		{&model.Equipment{}, &p.ids.equipment},
		{&model.FleetVehicle{}, &p.ids.fleet},
		{&model.Customer{}, &p.ids.customers},
	}
	for _, s := range sets {
		if err := tx.Model(s.model).Where("dive_center_id = ?", p.ids.center).Pluck("id", s.dst).Error; err != nil {
			return fmt.Errorf("collect %T ids: %w", s.model, err)
		}
	}
	return nil
}

// execute runs every step in cascadeOrder, stopping at the first error.
func (p *cascadePlan) execute(ctx context.Context, tx *gorm.DB) error {
	span := trace.SpanFromContext(ctx)
	for _, step := range cascadeOrder {
		ids := step.ids(&p.ids)
		if len(ids) == 0 {
			continue
		}
		res := tx.Where(step.column+" IN ?", ids).Delete(step.model)
		if res.Error != nil {
			return fmt.Errorf("delete %s: %w", step.table, res.Error)
		}
		p.removed[step.table] = res.RowsAffected
		span.AddEvent("cascade.step", trace.WithAttributes(
			attribute.String("table", step.table),
			attribute.Int64("rows", res.RowsAffected),
		))
	}
	return nil
}
