package divecenter

import (
	"fmt"
	"testing"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestCascadeOrder_CoversEveryTenantTable(t *testing.T) {
	notTenant := map[string]bool{
		"*model.User":             true,
		"*model.RefreshToken":     true,
		"*model.UserSubscription": true,
	}
	want := map[string]bool{}
	for _, m := range model.All() {
		name := fmt.Sprintf("%T", m)
		if !notTenant[name] {
			want[name] = true
		}
	}

	got := map[string]bool{}
	for _, step := range cascadeOrder {
		name := fmt.Sprintf("%T", step.model)
		assert.False(t, got[name], "%s deleted twice", name)
		got[name] = true
	}
	assert.Equal(t, want, got)
}

func TestCascadeOrder_ChildrenBeforeParents(t *testing.T) {
	pos := map[string]int{}
	for i, step := range cascadeOrder {
		pos[step.table] = i
	}
	edges := [][2]string{
		{"task_assignments", "tasks"},
		{"task_assignments", "staff"},
		{"staff_permissions", "staff"},
		{"trip_dive_master_assignments", "dive_trips"},
		{"trip_instructor_assignments", "staff"},
		{"participants", "dive_trips"},
		{"participants", "customers"},
		{"vehicles", "dive_trips"},
		{"course_students", "courses"},
		{"course_students", "customers"},
		{"equipment_rentals", "equipment"},
		{"equipment_rentals", "customers"},
		{"vehicle_crew_assignments", "fleet_vehicles"},
		{"vehicle_crew_assignments", "staff"},
		{"customers", "dive_centers"},
		{"staff", "dive_centers"},
	}
	for _, e := range edges {
		assert.Less(t, pos[e[0]], pos[e[1]], "%s must be deleted before %s", e[0], e[1])
	}
	assert.Equal(t, "dive_centers", cascadeOrder[len(cascadeOrder)-1].table)
}
