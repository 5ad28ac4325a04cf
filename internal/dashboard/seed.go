package dashboard

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func seedStats(now time.Time) []interface{} {
	return []interface{}{
		PlatformStats{TotalLossReduction: 35, FarmersHelped: 2500, AvgIncomeIncrease: 28, CreatedAt: now},
	}
}

func seedMarket(now time.Time) []interface{} {
	return []interface{}{
		MarketData{Crop: "Mangoes (Apple)", CurrentPrice: 120, PriceChange: 5.5, Demand: "high", BestSellingTime: "6 AM - 9 AM", CreatedAt: now},
		MarketData{Crop: "Tomatoes", CurrentPrice: 80, PriceChange: -2.1, Demand: "medium", BestSellingTime: "7 AM - 10 AM", CreatedAt: now.Add(time.Millisecond)},
		MarketData{Crop: "Oranges (Local)", CurrentPrice: 95, PriceChange: 3.0, Demand: "high", BestSellingTime: "8 AM - 11 AM", CreatedAt: now.Add(2 * time.Millisecond)},
	}
}

func seedCrops(now time.Time) []interface{} {
	return []interface{}{
		CropData{CropID: "mango", Name: "Mangoes", AverageLoss: 50, CurrentReduction: 38, CreatedAt: now},
		CropData{CropID: "tomato", Name: "Tomatoes", AverageLoss: 60, CurrentReduction: 42, CreatedAt: now},
		CropData{CropID: "orange", Name: "Oranges", AverageLoss: 45, CurrentReduction: 28, CreatedAt: now},
	}
}

func seedAlerts(now time.Time) []interface{} {
	return []interface{}{
		Alert{Type: "alert", Title: "High Temperature Alert", Message: "Temperatures expected to reach 35°C+ this week. Increase shade and ventilation for stored produce.", Level: "high", CreatedAt: now},
		Alert{Type: "opportunity", Title: "Market Opportunity", Message: "New aggregation center opened in Nakuru. 15% better prices for quality mangoes and oranges.", Level: "high", CreatedAt: now.Add(time.Millisecond)},
		Alert{Type: "info", Title: "Transport Update", Message: "Refrigerated trucks available for Mombasa route. Book early for 20% discount on transport costs.", Level: "medium", CreatedAt: now.Add(2 * time.Millisecond)},
	}
}

func seedTrends(now time.Time) []interface{} {
	return []interface{}{
		Trend{Crop: "Mangoes", Trend: "Prices expected to rise 8-12% due to reduced supply. Good time to sell premium varieties.", Level: "positive", CreatedAt: now},
		Trend{Crop: "Tomatoes", Trend: "Stable demand. Focus on quality grading to maximize returns.", Level: "neutral", CreatedAt: now.Add(time.Millisecond)},
		Trend{Crop: "Oranges", Trend: "High demand from juice processors. Consider bulk sales for better prices.", Level: "positive", CreatedAt: now.Add(2 * time.Millisecond)},
	}
}

// Seed fills every empty dashboard collection with the starter data and
// returns the names of the collections it wrote.
func (s *Service) Seed(ctx context.Context) ([]string, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	sets := []struct {
		name string
		docs []interface{}
	}{
		{s.names.Stats, seedStats(now)},
		{s.names.Market, seedMarket(now)},
		{s.names.Crops, seedCrops(now)},
		{s.names.Alerts, seedAlerts(now)},
		{s.names.Trends, seedTrends(now)},
	}

	var seeded []string
	for _, set := range sets {
		coll := s.colls.Collection(set.name)
		n, err := coll.CountDocuments(ctx, bson.M{})
		if err != nil {
			return seeded, fmt.Errorf("count %s: %w", set.name, err)
		}
		if n > 0 {
			continue
		}
		if _, err := coll.InsertMany(ctx, set.docs); err != nil {
			return seeded, fmt.Errorf("seed %s: %w", set.name, err)
		}
		seeded = append(seeded, set.name)
		s.logger.Info("Seeded collection", "collection", set.name, "count", len(set.docs))
	}
	return seeded, nil
}
