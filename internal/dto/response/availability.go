package response

type SlotResponse struct {
	ID        string `json:"id"`
	TimeSlot  string `json:"time_slot"`
	EndTime   string `json:"end_time"`
	NextDay   bool   `json:"next_day,omitempty"`
	Available bool   `json:"available"`
}

type AvailabilityResponse struct {
	Date           string         `json:"date"`
	Slots          []SlotResponse `json:"slots"`
	AvailableCount int            `json:"available_count"`
}
