// Package dashboard assembles the farmer dashboard from stored platform
// metrics, market data and alerts plus live weather and FAO trends.
package dashboard

import (
	"time"

	"github.com/alakara/harvest/internal/integrations/fao"
	"github.com/alakara/harvest/internal/integrations/weather"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlatformStats struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	TotalLossReduction float64            `bson:"total_loss_reduction" json:"totalLossReduction"`
	FarmersHelped      int                `bson:"farmers_helped" json:"farmersHelped"`
	AvgIncomeIncrease  float64            `bson:"avg_income_increase" json:"avgIncomeIncrease"`
	CreatedAt          time.Time          `bson:"created_at" json:"createdAt"`
}

type MarketData struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Crop            string             `bson:"crop" json:"crop"`
	CurrentPrice    float64            `bson:"current_price" json:"currentPrice"`
	PriceChange     float64            `bson:"price_change" json:"priceChange"` // percent
	Demand          string             `bson:"demand" json:"demand"`
	BestSellingTime string             `bson:"best_selling_time" json:"bestSellingTime"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
}

type CropData struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CropID           string             `bson:"crop_id" json:"cropId"`
	Name             string             `bson:"name" json:"name"`
	AverageLoss      float64            `bson:"average_loss" json:"averageLoss"`
	CurrentReduction float64            `bson:"current_reduction" json:"currentReduction"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
}

type Alert struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Type      string             `bson:"type" json:"type"` // alert, opportunity, info
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Level     string             `bson:"level" json:"level"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

type Trend struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Crop      string             `bson:"crop" json:"crop"`
	Trend     string             `bson:"trend" json:"trend"`
	Level     string             `bson:"level" json:"level"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// Dashboard is the response of Get.
type Dashboard struct {
	Stats      *PlatformStats      `json:"stats"`
	MarketData []MarketData        `json:"marketData"`
	CropData   []CropData          `json:"cropData"`
	Alerts     []Alert             `json:"alerts"`
	Trends     []Trend             `json:"trends"`
	Weather    *weather.Conditions `json:"weather"`
	FAOTrends  []fao.Trend         `json:"faoTrends"`
}
