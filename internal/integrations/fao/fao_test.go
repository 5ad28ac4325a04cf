package fao

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alakara/harvest/internal/integrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	points := []DataPoint{
		{Crop: "Mangoes, mangosteens, guavas", Year: 2021, Value: 800, Element: elementProduction},
		{Crop: "Mangoes, mangosteens, guavas", Year: 2022, Value: 880, Element: elementProduction},
		{Crop: "Mangoes, mangosteens, guavas", Year: 2020, Value: 900, Element: elementProduction},
		{Crop: "Tomatoes", Year: 2022, Value: 450, Element: elementPrice},
		{Crop: "Tomatoes", Year: 2021, Value: 500, Element: elementPrice},
		{Crop: "Oranges", Year: 2022, Value: 100, Element: elementProduction},
	}

	trends := Summarize(points)
	require.Len(t, trends, 2)

	assert.Equal(t, Trend{Crop: "Tomatoes", Trend: "Global producer prices fell by 10.0% (USD) in 2022.", Level: "neutral", Type: "Price"}, trends[0])
	assert.Equal(t, Trend{Crop: "Mangoes", Trend: "Production increased by 10.0% in 2022 compared to 2021.", Level: "positive", Type: "Production"}, trends[1])
}

func TestSummarize_Empty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}

func TestSummarize_ZeroBaseline(t *testing.T) {
	points := []DataPoint{
		{Crop: "Oranges", Year: 2022, Value: 10, Element: elementProduction},
		{Crop: "Oranges", Year: 2021, Value: 0, Element: elementProduction},
	}
	assert.Empty(t, Summarize(points))
}

func TestClient_Trends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "114", r.URL.Query().Get("area"))
		switch r.URL.Query().Get("domain") {
		case "QCL":
			assert.Equal(t, "5510", r.URL.Query().Get("element"))
			_, _ = w.Write([]byte(`{"data":[
				{"Item":"Oranges","Year":"2022","Value":"1100","Unit":"t"},
				{"Item":"Oranges","Year":"2021","Value":1000,"Unit":"t"}
			]}`))
		case "PP":
			_, _ = w.Write([]byte(`{"data":[]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	cfg := integrations.DefaultConfig()
	cfg.FAO.BaseURL = srv.URL

	trends := New(cfg, nil).Trends(context.Background())
	require.Len(t, trends, 1)
	assert.Equal(t, "Oranges", trends[0].Crop)
	assert.Equal(t, "positive", trends[0].Level)
}

func TestClient_TrendsFallsBackToCanned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := integrations.DefaultConfig()
	cfg.FAO.BaseURL = srv.URL

	assert.Equal(t, CannedTrends, New(cfg, nil).Trends(context.Background()))
}
