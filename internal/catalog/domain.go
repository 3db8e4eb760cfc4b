package catalog

import "github.com/autocare/workshop/internal/platform/httpx"

// Category groups services on the booking form.
type Category string

const (
	CategoryWash        Category = "wash"
	CategoryRepair      Category = "repair"
	CategoryMaintenance Category = "maintenance"
)

// Service is a priced item staff can add to a booking.
type Service struct {
	ID       string   `json:"id" yaml:"id" db:"id"`
	Name     string   `json:"name" yaml:"name" db:"name"`
	Price    float64  `json:"price" yaml:"price" db:"price"`
	Category Category `json:"category" yaml:"category" db:"category"`
	Position int      `json:"position" yaml:"position" db:"position"`
}

// ErrUnknownService is returned when a booking references a service id
// that is not on the menu.
var ErrUnknownService = httpx.NewError(httpx.ErrValidation, "catalog: unknown service")

// DefaultServices is the menu seeded into an empty catalog.
func DefaultServices() []Service {
	return []Service{
		{ID: "1", Name: "Basic Car Wash", Price: 25, Category: CategoryWash, Position: 1},
		{ID: "2", Name: "Premium Car Wash", Price: 45, Category: CategoryWash, Position: 2},
		{ID: "3", Name: "Interior Cleaning", Price: 35, Category: CategoryWash, Position: 3},
		{ID: "4", Name: "Oil Change", Price: 60, Category: CategoryMaintenance, Position: 4},
		{ID: "5", Name: "Brake Inspection", Price: 80, Category: CategoryMaintenance, Position: 5},
		{ID: "6", Name: "Tire Rotation", Price: 40, Category: CategoryMaintenance, Position: 6},
		{ID: "7", Name: "Engine Diagnostic", Price: 120, Category: CategoryRepair, Position: 7},
		{ID: "8", Name: "Battery Replacement", Price: 150, Category: CategoryRepair, Position: 8},
		{ID: "9", Name: "AC Repair", Price: 200, Category: CategoryRepair, Position: 9},
	}
}

// Selection is the outcome of resolving service ids from a booking form.
type Selection struct {
	Services []Service
	Total    float64
}

// Names lists the selected service names in selection order.
func (s Selection) Names() []string {
	names := make([]string, 0, len(s.Services))
	for _, svc := range s.Services {
		names = append(names, svc.Name)
	}
	return names
}

// CategoryGroup is a heading on the booking form.
type CategoryGroup struct {
	Category Category
	Services []Service
}

// Label is the display name of the category.
func (c Category) Label() string {
	switch c {
	case CategoryWash:
		return "Car Wash"
	case CategoryRepair:
		return "Repair"
	case CategoryMaintenance:
		return "Maintenance"
	}
	return string(c)
}
