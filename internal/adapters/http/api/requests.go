package api

// clockRequest mirrors the OpenAPI schema for POST /v1/clock.
type clockRequest struct {
	Kind       string   `json:"kind" validate:"required,oneof=ENTRY EXIT"`
	Latitude   *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude  *float64 `json:"longitude" validate:"omitempty,longitude"`
	DeviceInfo string   `json:"device_info" validate:"max=512"`
}

type incidentRequest struct {
	Kind         string  `json:"kind" validate:"required,oneof=FORGOT_ENTRY LATE_ARRIVAL NOT_WORKING"`
	Date         string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description  string  `json:"description" validate:"required,max=2000"`
	ClockEventID *string `json:"clock_event_id" validate:"omitempty,uuid"`
}

type reviewRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

type shiftRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	EntryTime string `json:"entry_time" validate:"required,max=8"`
	IsActive  *bool  `json:"is_active"` // defaults to true
}

type scheduleRequest struct {
	Shifts []shiftRequest `json:"shifts" validate:"max=64,dive"`
}

type organizationRequest struct {
	Name                string   `json:"name" validate:"required,max=200"`
	Address             string   `json:"address" validate:"max=500"`
	Latitude            *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude           *float64 `json:"longitude" validate:"omitempty,longitude"`
	AllowedRadiusMeters float64  `json:"allowed_radius_meters" validate:"gte=0,lte=100000"`
	Timezone            string   `json:"timezone" validate:"omitempty,timezone"`
}

type memberRequest struct {
	WorkerID string `json:"worker_id" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=EMPLOYEE MANAGER ADMIN"`
}

type workerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=200"`
}
