package summary

import (
	"context"
	"fmt"
)

const analystPersona = "You are a ski-touring weather analyst."

// Conditions is the numeric context sent alongside the meteogram image.
type Conditions struct {
	Location      string
	Snowfall      float64
	SnowDepth     float64
	FreezingLevel float64
}

// Summarizer produces a free-text ski-touring assessment from a rendered
// meteogram plus current readings.
type Summarizer interface {
	Summarize(ctx context.Context, imageDataURI string, cond Conditions) (string, error)
}

// Summarize sends one combined multimodal request: the chart image and the
// structured numeric context. The prompt keeps the model honest about what
// the chart actually shows.
func (c *Client) Summarize(ctx context.Context, imageDataURI string, cond Conditions) (string, error) {
	prompt := fmt.Sprintf(
		"Assess ski-touring conditions for %s based on the attached meteogram.\n"+
			"Current readings: snowfall %.1f cm, snow depth %.1f cm, freezing level %.0f m.\n"+
			"Rules:\n"+
			"- Mention precipitation only if it is visually unambiguous in the chart.\n"+
			"- Mention cloud cover only if it is visually unambiguous in the chart.\n"+
			"- Before declaring good conditions, verify that %s is plausibly a ski-touring destination; "+
			"if it is not, state explicitly that it is not a ski destination.",
		cond.Location, cond.Snowfall, cond.SnowDepth, cond.FreezingLevel, cond.Location,
	)

	return c.createChatCompletion(ctx, chatCompletionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: analystPersona},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: imageDataURI}},
			}},
		},
		MaxTokens: maxOutputTokens,
	})
}
