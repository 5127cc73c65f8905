package entity

type AppointmentStatus string

const (
	AppointmentStatusPending                    AppointmentStatus = "pending"
	AppointmentStatusConfirmed                  AppointmentStatus = "confirmed"
	AppointmentStatusCancelled                  AppointmentStatus = "cancelled"
	AppointmentStatusCompleted                  AppointmentStatus = "completed"
	AppointmentStatusPendingTastingConfirmation AppointmentStatus = "PENDING_TASTING_CONFIRMATION"
	AppointmentStatusTastingConfirmed           AppointmentStatus = "TASTING_CONFIRMED"
	AppointmentStatusTastingCompleted           AppointmentStatus = "TASTING_COMPLETED"
	AppointmentStatusTastingRescheduleRequested AppointmentStatus = "TASTING_RESCHEDULE_REQUESTED"
)

// AllAppointmentStatuses lists every recognised status.
var AllAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCancelled,
	AppointmentStatusCompleted,
	AppointmentStatusPendingTastingConfirmation,
	AppointmentStatusTastingConfirmed,
	AppointmentStatusTastingCompleted,
	AppointmentStatusTastingRescheduleRequested,
}

// ActiveAppointmentStatuses hold a calendar slot. Must match the predicate of
// appointments_active_slot_uidx in migrations/001_init.sql.
var ActiveAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusPendingTastingConfirmation,
	AppointmentStatusTastingConfirmed,
	AppointmentStatusTastingCompleted,
	AppointmentStatusTastingRescheduleRequested,
}

var appointmentTransitions = map[AppointmentStatus]map[AppointmentStatus]bool{
	AppointmentStatusPending: {
		AppointmentStatusConfirmed:                  true,
		AppointmentStatusCancelled:                  true,
		AppointmentStatusPendingTastingConfirmation: true,
	},
	AppointmentStatusPendingTastingConfirmation: {
		AppointmentStatusTastingConfirmed:           true,
		AppointmentStatusTastingRescheduleRequested: true,
		AppointmentStatusCancelled:                  true,
	},
	AppointmentStatusTastingRescheduleRequested: {
		AppointmentStatusTastingConfirmed:           true,
		AppointmentStatusTastingRescheduleRequested: true,
		AppointmentStatusCancelled:                  true,
	},
	AppointmentStatusTastingConfirmed: {
		AppointmentStatusTastingCompleted: true,
		AppointmentStatusCancelled:        true,
	},
	AppointmentStatusTastingCompleted: {
		AppointmentStatusConfirmed: true,
		AppointmentStatusCompleted: true,
	},
	AppointmentStatusConfirmed: {
		AppointmentStatusCompleted: true,
		AppointmentStatusCancelled: true,
	},
	AppointmentStatusCompleted: {},
	AppointmentStatusCancelled: {},
}

func (s AppointmentStatus) IsValid() bool {
	_, ok := appointmentTransitions[s]
	return ok
}

func (s AppointmentStatus) IsActive() bool {
	for _, active := range ActiveAppointmentStatuses {
		if s == active {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) IsTerminal() bool {
	return s.IsValid() && len(appointmentTransitions[s]) == 0
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	return appointmentTransitions[s][next]
}

// ActiveStatusStrings is ActiveAppointmentStatuses as plain strings for SQL
// ANY($n) parameters.
func ActiveStatusStrings() []string {
	out := make([]string, len(ActiveAppointmentStatuses))
	for i, s := range ActiveAppointmentStatuses {
		out[i] = string(s)
	}
	return out
}
