package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blood-platform/internal/models"
)

// SeedDefaults loads a small set of centers and rewards so a fresh memory
// store is usable from the SPA.
func SeedDefaults(ctx context.Context, store Store) error {
	now := time.Now().UTC()
	stock := func(n int) *int { return &n }

	centers := []models.DonationCenter{
		{Name: "Banc de Sang Barcelona", Address: "Passeig Taulat 116", City: "Barcelona", Latitude: 41.4036, Longitude: 2.2036, Phone: "935 573 500", Capacity: 4},
		{Name: "Hospital Vall d'Hebron", Address: "Passeig de la Vall d'Hebron 119", City: "Barcelona", Latitude: 41.4275, Longitude: 2.1427, Capacity: 3},
		{Name: "Hospital Josep Trueta", Address: "Avinguda de França s/n", City: "Girona", Latitude: 41.9990, Longitude: 2.8244, Capacity: 2},
	}

	rewards := []models.Reward{
		{Name: "Cinema ticket", Description: "One 2D screening ticket", Partner: "Cines Verdi", Category: "leisure", TokensRequired: 30, Status: models.RewardAvailable},
		{Name: "Museum pass", Description: "Annual pass for city museums", Partner: "Museus BCN", Category: "culture", TokensRequired: 60, StockAvailable: stock(20), Status: models.RewardAvailable},
		{Name: "Football match", Description: "Two tickets for a league match", Partner: "FC Barcelona", Category: "sport", TokensRequired: 150, StockAvailable: stock(4), Status: models.RewardLowStock},
		{Name: "Donor t-shirt", Description: "Organic cotton t-shirt", Partner: "Banc de Sang", Category: "merch", TokensRequired: 15, StockAvailable: stock(100), Status: models.RewardAvailable},
	}

	return store.Update(ctx, func(repo Repository) error {
		for i := range centers {
			c := centers[i]
			c.ID = uuid.New()
			c.CreatedAt = now
			if err := repo.CreateCenter(ctx, &c); err != nil {
				return fmt.Errorf("seed center %q: %w", c.Name, err)
			}
		}
		for i := range rewards {
			r := rewards[i]
			r.ID = uuid.New()
			r.CreatedAt = now
			r.UpdatedAt = now
			if err := repo.CreateReward(ctx, &r); err != nil {
				return fmt.Errorf("seed reward %q: %w", r.Name, err)
			}
		}
		return nil
	})
}
