package ai

import (
	"context"
	"strings"
)

// Greeting opens every chat session.
const Greeting = "Habari! I'm Alakara's AI assistant. I can help with post-harvest for mangoes, tomatoes, and oranges. What's on your mind?"

const general = "I can provide advice on harvesting, storage, and transport for mangoes, tomatoes, and oranges. Please specify the crop and your question."

type cropAdvice struct {
	name       string
	keyword    string
	harvesting string
	storage    string
	transport  string
}

var crops = []cropAdvice{
	{
		name:       "mango",
		keyword:    "mango",
		harvesting: "Harvest mangoes when they are physiologically mature (full-rounded shoulders). Clip them with a 1-2cm stem to avoid sap burn.",
		storage:    "Store mature-green mangoes at 10-13°C. Ripe mangoes can be stored at 7-10°C for a few days.",
		transport:  "Transport in cool, ventilated trucks, preferably during early morning or night. Use cushioned crates to prevent bruising.",
	},
	{
		name:       "tomato",
		keyword:    "tomato",
		harvesting: "Harvest tomatoes at the 'breaker' stage (first signs of color) for long-distance transport. For local markets, harvest at the pink or red stage.",
		storage:    "Store tomatoes at 12-15°C. Never refrigerate below 10°C, as this causes chilling injury and loss of flavor.",
		transport:  "Use rigid plastic crates, not bags. Avoid stacking more than 2-3 layers high without proper support.",
	},
	{
		name:       "orange",
		keyword:    "orange",
		harvesting: "Harvest oranges by clipping them from the tree, leaving no stem. Do not pull them. Harvest based on color and size (check market requirements).",
		storage:    "Store oranges at 5-8°C with high humidity (85-90%). Proper ventilation is key to prevent mold.",
		transport:  "Use firm, ventilated boxes. Ensure the fruit is packed snugly to prevent movement and bruising during transit.",
	},
}

// Rules is the keyword responder used when no model is available.
type Rules struct{}

func (Rules) Respond(_ context.Context, message string) (string, error) {
	return Answer(message), nil
}

// Answer matches message against crop and topic keywords.
func Answer(message string) string {
	msg := strings.ToLower(message)

	for _, c := range crops {
		if !strings.Contains(msg, c.keyword) {
			continue
		}
		switch {
		case strings.Contains(msg, "harvest"):
			return c.harvesting
		case strings.Contains(msg, "storage"), strings.Contains(msg, "store"):
			return c.storage
		case strings.Contains(msg, "transport"):
			return c.transport
		}
		return "I can help you with " + c.name + " harvesting, storage, and transport. What specific aspect would you like to know about?"
	}

	switch {
	case strings.Contains(msg, "loss"), strings.Contains(msg, "reduce"):
		return "To reduce post-harvest losses: 1) Harvest at the right time, 2) Handle carefully, 3) Store properly, 4) Transport efficiently. Which crop are you working with?"
	case strings.Contains(msg, "price"), strings.Contains(msg, "market"):
		return "For current market prices and best selling times, check our Market Data section. Generally, morning hours (6-10 AM) are best for selling fresh produce."
	case strings.Contains(msg, "hello"), strings.Contains(msg, "hi"), strings.Contains(msg, "habari"):
		return "Habari! I'm here to help you reduce post-harvest losses. Which crop would you like advice on - mangoes, tomatoes, or oranges?"
	}
	return general
}
