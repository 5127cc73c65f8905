package usecase

import (
	"context"
	"strings"

	"catering-booking/internal/data/repository"
	"catering-booking/internal/dto/response"
	"catering-booking/pkg/utils"

	"go.uber.org/zap"
)

type AvailabilityService interface {
	// GetAvailability always reads the store. Results must not be cached.
	GetAvailability(ctx context.Context, date string) (*response.AvailabilityResponse, error)
}

type availabilityService struct {
	appointments repository.AppointmentRepository
	log          *zap.Logger
}

func NewAvailabilityService(appointments repository.AppointmentRepository, log *zap.Logger) AvailabilityService {
	return &availabilityService{
		appointments: appointments,
		log:          log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityService) GetAvailability(ctx context.Context, date string) (*response.AvailabilityResponse, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, utils.BadRequest("date is required")
	}

	day, err := utils.ParseDate(date)
	if err != nil {
		return nil, utils.BadRequest("date must be in YYYY-MM-DD format")
	}

	active, err := s.appointments.FindActiveByDate(ctx, day)
	if err != nil {
		return nil, utils.Upstream(err, "load appointments for %s", date)
	}

	// Capacity is one event per slot. Labels outside the slot set never match.
	booked := make(map[string]bool, len(active))
	for _, a := range active {
		booked[a.EventTime] = true
	}

	dateLabel := day.Format(utils.DateLayout)
	resp := &response.AvailabilityResponse{
		Date:  dateLabel,
		Slots: make([]response.SlotResponse, 0, len(utils.TimeSlots)),
	}

	for _, slot := range utils.TimeSlots {
		end, nextDay, err := utils.ServiceWindowEnd(slot)
		if err != nil {
			return nil, utils.Upstream(err, "compute service window for %s", slot)
		}

		available := !booked[slot]
		if available {
			resp.AvailableCount++
		}

		resp.Slots = append(resp.Slots, response.SlotResponse{
			ID:        dateLabel + "-" + slot,
			TimeSlot:  slot,
			EndTime:   end,
			NextDay:   nextDay,
			Available: available,
		})
	}

	s.log.Debug("Availability computed",
		zap.String("date", dateLabel),
		zap.Int("available", resp.AvailableCount))

	return resp, nil
}
