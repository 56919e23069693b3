package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/app"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/logger"
	"github.com/hackgods/appointment-booking/internal/slot"
)

// seedPassword is shared by every seeded account so they can log in.
const seedPassword = "seed_pass1"

var serviceTypes = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Physiotherapy",
	"Dentistry",
	"Hair Salon",
	"Massage",
	"Nutrition",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Service: "seed"}).Fatal("config load error", "error", err)
	}
	if cfg.StoreDriver != config.StorePostgres {
		logger.New(logger.Config{Service: "seed"}).Fatal("seed needs STORE_DRIVER=postgres")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "seed"})
	log.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := app.Build(ctx, cfg, "seed", log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	providers := getInt("SEED_PROVIDERS", 10)
	clients := getInt("SEED_CLIENTS", 50)
	days := getInt("SEED_DAYS", 7)

	providerIDs, err := seedAccounts(ctx, a, auth.RoleProvider, providers)
	if err != nil {
		log.Fatal("seed providers", "error", err)
	}
	if _, err := seedAccounts(ctx, a, auth.RoleUser, clients); err != nil {
		log.Fatal("seed clients", "error", err)
	}

	created, err := seedSlots(ctx, a.Slots, providerIDs, days)
	if err != nil {
		log.Fatal("seed slots", "error", err)
	}

	log.Info("seed complete",
		"providers", len(providerIDs),
		"clients", clients,
		"slots", created,
		"password", seedPassword,
	)
}

func seedAccounts(ctx context.Context, a *app.App, role auth.Role, count int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, count)

	for i := 0; i < count; i++ {
		first, last := fitName(gofakeit.FirstName()), fitName(gofakeit.LastName())
		email := strings.ToLower(fmt.Sprintf("%s.%s.%d@seed.example.com", first, last, gofakeit.Number(1, 1_000_000)))

		in := account.RegisterInput{
			FirstName:       first,
			LastName:        last,
			Email:           email,
			Password:        seedPassword,
			ConfirmPassword: seedPassword,
			Role:            role,
		}
		if role == auth.RoleProvider {
			in.ServiceType = serviceTypes[gofakeit.Number(0, len(serviceTypes)-1)]
		}

		id, err := a.Accounts.Register(ctx, in)
		if err != nil {
			return ids, fmt.Errorf("register %s: %w", email, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// seedSlots opens half-hour slots between 09:00 and 12:00 on the next days.
func seedSlots(ctx context.Context, slots *slot.Service, providerIDs []uuid.UUID, days int) (int, error) {
	created := 0
	today := time.Now().UTC()

	for _, providerID := range providerIDs {
		for d := 1; d <= days; d++ {
			date := today.AddDate(0, 0, d).Format(slot.DateLayout)

			for start := 9 * 60; start < 12*60; start += 30 {
				_, err := slots.Create(ctx, slot.CreateInput{
					ProviderID: providerID,
					Date:       date,
					StartTime:  clock(start),
					EndTime:    clock(start + 30),
				})
				if err != nil {
					return created, err
				}
				created++
			}
		}
	}

	return created, nil
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func fitName(n string) string {
	n = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\'' {
			return -1
		}
		return r
	}, n)
	for len(n) < 3 {
		n += "a"
	}
	if len(n) > 30 {
		n = n[:30]
	}
	return n
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
