package ai

import (
	"context"
	"strings"
)

// MockProvider returns deterministic answers so the app works offline and
// in tests. It looks at the last user message to pick a canned response.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	_ = ctx

	lastUserMessage := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			lastUserMessage = messages[i].Content
			break
		}
	}

	lowered := strings.ToLower(lastUserMessage)
	switch {
	case strings.Contains(lowered, "workout") || strings.Contains(lowered, "training plan"):
		return "Day 1: 30 min easy run.\n" +
			"Day 2: Full-body strength, 3x10 squats, push-ups, rows.\n" +
			"Day 3: Rest or 20 min walk.\n" +
			"Day 4: Intervals, 6x400m with 90s recovery.\n" +
			"Day 5: 40 min steady run.\n" +
			"Day 6: Core and mobility, 20 min.\n" +
			"Day 7: Rest.", nil
	case strings.Contains(lowered, "recommendation") || strings.Contains(lowered, "nutrition") || strings.Contains(lowered, "advice"):
		return "1. Eat protein with every meal to stay full longer.\n" +
			"2. Drink a glass of water before each meal.\n" +
			"3. Take a 20-minute walk after lunch.\n" +
			"4. Keep a consistent sleep schedule of 7-8 hours.", nil
	default:
		return "Stay consistent: log your meals, move every day, and review your weekly trends.", nil
	}
}
