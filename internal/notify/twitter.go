package notify

import (
	"context"
	"fmt"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
)

// TwitterChannel posts a condensed digest as a single tweet.
type TwitterChannel struct {
	client *twitter.Client
}

// NewTwitter creates a Twitter channel from the four credential values.
func NewTwitter(secrets config.Secrets) (*TwitterChannel, error) {
	if secrets.TwitterAPIKey == "" || secrets.TwitterAPISecret == "" ||
		secrets.TwitterToken == "" || secrets.TwitterSecret == "" {
		return nil, fmt.Errorf("missing required Twitter credentials in environment variables")
	}

	oaConfig := oauth1.NewConfig(secrets.TwitterAPIKey, secrets.TwitterAPISecret)
	token := oauth1.NewToken(secrets.TwitterToken, secrets.TwitterSecret)
	httpClient := oaConfig.Client(oauth1.NoContext, token)

	return &TwitterChannel{client: twitter.NewClient(httpClient)}, nil
}

func (c *TwitterChannel) Name() string { return "twitter" }

// Send posts the digest tweet.
func (c *TwitterChannel) Send(ctx context.Context, d *Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := c.client.Statuses.Update(formatTweet(d), nil)
	if err != nil {
		return fmt.Errorf("posting digest tweet: %w", err)
	}
	return nil
}

// formatTweet condenses the digest to fit Twitter's 280 character limit.
func formatTweet(d *Digest) string {
	tweet := fmt.Sprintf("🦖 Event Scout: %d new event%s this week, registered for %d.\n",
		d.NewCount, pluralize(d.NewCount), d.RegisteredCount)

	for _, item := range d.Items {
		if !item.Registered {
			continue
		}
		line := fmt.Sprintf("✅ %s (%s)\n", item.Event.Title,
			item.Event.StartTime.In(event.JST).Format("Jan 2"))
		if len(tweet)+len(line) > 270 {
			break
		}
		tweet += line
	}
	tweet += "#Kansai #StartupEvents"

	if len(tweet) > 280 {
		tweet = tweet[:277] + "..."
	}
	return tweet
}
