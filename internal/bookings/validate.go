package bookings

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var fieldKeys = map[string]string{
	"CreateRequest.CustomerName":     "customerName",
	"CreateRequest.CustomerPhone":    "customerPhone",
	"CreateRequest.Car.Make":         "carMake",
	"CreateRequest.Car.Model":        "carModel",
	"CreateRequest.Car.Year":         "carYear",
	"CreateRequest.Car.LicensePlate": "licensePlate",
	"CreateRequest.Notes":            "notes",
}

var fieldLabels = map[string]string{
	"customerName":  "Customer name",
	"customerPhone": "Phone number",
	"carMake":       "Car make",
	"carModel":      "Car model",
	"carYear":       "Year",
	"licensePlate":  "License plate",
	"notes":         "Notes",
}

// normalize trims free-text input in place.
func (r *CreateRequest) normalize() {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.Car.Make = strings.TrimSpace(r.Car.Make)
	r.Car.Model = strings.TrimSpace(r.Car.Model)
	r.Car.LicensePlate = strings.ToUpper(strings.TrimSpace(r.Car.LicensePlate))
	r.Notes = strings.TrimSpace(r.Notes)
	ids := r.ServiceIDs[:0:0]
	for _, id := range r.ServiceIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	r.ServiceIDs = ids
}

// Validate checks the request against the booking form rules. now bounds
// the accepted model year.
func (r CreateRequest) Validate(now time.Time) error {
	fields := map[string]string{}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			key, ok := fieldKeys[fe.StructNamespace()]
			if !ok {
				key = fe.Field()
			}
			if _, dup := fields[key]; dup {
				continue
			}
			fields[key] = fieldMessage(key, fe.Tag())
		}
	}
	if _, bad := fields["carYear"]; !bad && (r.Car.Year < MinCarYear || r.Car.Year > now.Year()+1) {
		fields["carYear"] = "Enter a valid year"
	}
	if len(r.ServiceIDs) == 0 {
		fields["services"] = "Please select at least one service"
	}
	if r.ScheduledAt.IsZero() {
		fields["scheduledDate"] = "Scheduled date is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// MinCarYear is the oldest model year the form accepts.
const MinCarYear = 1990

func fieldMessage(key, tag string) string {
	label := fieldLabels[key]
	if label == "" {
		label = key
	}
	switch tag {
	case "required":
		return label + " is required"
	case "max":
		return label + " is too long"
	}
	if key == "carYear" {
		return "Enter a valid year"
	}
	return label + " is invalid"
}
