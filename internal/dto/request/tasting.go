package request

type ConfirmTastingRequest struct {
	Token  string `json:"token" validate:"required"`
	Action string `json:"action" validate:"omitempty,oneof=confirm"`
}

// RescheduleTastingRequest keeps the camelCase names used by the
// confirmation email links.
type RescheduleTastingRequest struct {
	Token           string  `json:"token" validate:"required"`
	PreferredDate   string  `json:"preferredDate" validate:"required,datestr"`
	PreferredTime   string  `json:"preferredTime" validate:"required,timeslot"`
	AlternativeDate *string `json:"alternativeDate,omitempty" validate:"omitempty,datestr"`
	AlternativeTime *string `json:"alternativeTime,omitempty" validate:"omitempty,timeslot"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type ScheduleTastingRequest struct {
	Date string `json:"date" validate:"required,datestr"`
	Time string `json:"time" validate:"required,timeslot"`
}

type ListTastingsRequest struct {
	PaginatedRequest
	Status string `json:"status" validate:"omitempty,oneof=pending confirmed reschedule_requested completed"`
}
