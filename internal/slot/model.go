package slot

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// TimeSlot is a bookable window owned by one provider. IsBooked is true
// exactly while one non-canceled appointment references the slot.
type TimeSlot struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	IsBooked   bool      `json:"is_booked"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StartsAt is the slot start as a UTC instant.
func (s TimeSlot) StartsAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+ClockLayout, s.Date+" "+s.StartTime, time.UTC)
}

// EndsAt is the slot end as a UTC instant.
func (s TimeSlot) EndsAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+ClockLayout, s.Date+" "+s.EndTime, time.UTC)
}

// NormalizeDate accepts YYYY-MM-DD and returns it unchanged if valid.
func NormalizeDate(raw string) (string, error) {
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("date must be YYYY-MM-DD: %q", raw)
	}
	return d.Format(DateLayout), nil
}

// NormalizeClock accepts HH:MM or HH:MM:SS and returns HH:MM.
func NormalizeClock(raw string) (string, error) {
	for _, layout := range []string{ClockLayout, "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", fmt.Errorf("time must be HH:MM: %q", raw)
}
