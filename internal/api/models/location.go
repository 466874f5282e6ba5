package models

// LocationUpdateRequest is the body of PUT /v1/location. Both fields are
// required.
type LocationUpdateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Validate returns one field error per missing or out-of-range field.
func (r LocationUpdateRequest) Validate() []FieldError {
	var errs []FieldError
	switch {
	case r.Latitude == nil:
		errs = append(errs, FieldError{Field: "latitude", Message: "latitude is required", Code: CodeRequired})
	case *r.Latitude < -90 || *r.Latitude > 90:
		errs = append(errs, FieldError{Field: "latitude", Message: "latitude must be between -90 and 90", Code: CodeOutOfRange})
	}
	switch {
	case r.Longitude == nil:
		errs = append(errs, FieldError{Field: "longitude", Message: "longitude is required", Code: CodeRequired})
	case *r.Longitude < -180 || *r.Longitude > 180:
		errs = append(errs, FieldError{Field: "longitude", Message: "longitude must be between -180 and 180", Code: CodeOutOfRange})
	}
	return errs
}
