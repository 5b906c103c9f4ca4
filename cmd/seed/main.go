package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omasdev/provider-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 500)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, providerIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedPreferences(context.Background(), pool, patientIDs); err != nil {
		log.Fatalf("seed notification preferences: %v", err)
	}

	log.Println("seed complete")
}

var timezones = []string{
	"UTC",
	"America/Mexico_City",
	"America/New_York",
	"America/Chicago",
	"America/Los_Angeles",
	"Europe/Madrid",
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		tz := timezones[gofakeit.Number(0, len(timezones)-1)]
		phone := gofakeit.Phone()

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, display_name, specialty, email, phone, timezone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, id, name, spec, gofakeit.Email(), phone, tz)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("providers seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			dob := gofakeit.DateRange(
				time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
			)
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, first_name, last_name, email, phone, date_of_birth, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			`, id, gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email(), phone, dob)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

// seedAvailability gives every provider a weekday schedule (morning and
// afternoon shifts Mon-Fri) plus the occasional blocking exception.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) error {
	log.Printf("seeding availability for %d providers", len(providerIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, providerID := range providerIDs {
		for weekday := 1; weekday <= 5; weekday++ {
			shifts := [][2]string{
				{"09:00", "12:00"},
				{"13:00", "17:00"},
			}
			for _, shift := range shifts {
				location := fmt.Sprintf("Room %d", gofakeit.Number(100, 499))
				_, err := tx.Exec(ctx, `
					INSERT INTO provider_availability (id, provider_id, weekday, start_time, end_time, location)
					VALUES ($1, $2, $3, $4, $5, $6)
				`, uuid.New(), providerID, weekday, shift[0], shift[1], location)
				if err != nil {
					return err
				}
			}
		}

		if gofakeit.Bool() {
			start := time.Now().UTC().AddDate(0, 0, gofakeit.Number(1, 10)).Truncate(time.Hour)
			reason := "Personal leave"
			_, err := tx.Exec(ctx, `
				INSERT INTO provider_exceptions (id, provider_id, start_at, end_at, reason, is_blocking, created_at)
				VALUES ($1, $2, $3, $4, $5, true, now())
			`, uuid.New(), providerID, start, start.Add(4*time.Hour), reason)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}

func seedPreferences(ctx context.Context, pool *pgxpool.Pool, patientIDs []uuid.UUID) error {
	log.Printf("seeding notification preferences for %d patients", len(patientIDs))

	channels := []string{"email", "sms", "push"}
	leads := []int{30, 60, 120, 1440}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, patientID := range patientIDs {
		channel := channels[gofakeit.Number(0, len(channels)-1)]
		lead := leads[gofakeit.Number(0, len(leads)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO notification_preferences (id, user_type, user_id, channel, lead_minutes, enabled)
			VALUES ($1, 'patient', $2, $3, $4, true)
		`, uuid.New(), patientID, channel, lead)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("notification preferences seeded")
	return nil
}
