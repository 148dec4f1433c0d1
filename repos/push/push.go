package push

import (
	"context"
	"fmt"
	"log"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"golang.org/x/time/rate"
)

// MaxMulticastTokens is the most tokens FCM accepts in one multicast send.
const MaxMulticastTokens = 500

// Notification contains the data to send in a push notification.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
	// Path opened when the notification is clicked, relative to the app base URL.
	Path string
}

// BatchResult summarizes one multicast send.
type BatchResult struct {
	SuccessCount int
	FailureCount int
	// Unregistered lists tokens FCM reported as no longer registered.
	Unregistered []string
}

// Client wraps Firebase Cloud Messaging multicast sends.
type Client struct {
	messagingClient *messaging.Client
	limiter         *rate.Limiter
	baseURL         string
	isUnregistered  func(error) bool
}

// NewClient paces sends to perSecond multicast calls.
func NewClient(messagingClient *messaging.Client, baseURL string, perSecond float64) *Client {
	return &Client{
		messagingClient: messagingClient,
		limiter:         rate.NewLimiter(rate.Limit(perSecond), 1),
		baseURL:         baseURL,
		isUnregistered:  messaging.IsUnregistered,
	}
}

// SendMulticast sends one notification to up to MaxMulticastTokens tokens.
// Per-token failures are counted, not returned as errors.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, notification Notification) (*BatchResult, error) {
	if len(tokens) == 0 {
		return &BatchResult{}, nil
	}
	if len(tokens) > MaxMulticastTokens {
		return nil, fmt.Errorf("multicast to %d tokens exceeds %d", len(tokens), MaxMulticastTokens)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, buildMessage(tokens, notification, c.baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	log.Printf("[FCM] Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return summarize(tokens, response, c.isUnregistered), nil
}

func buildMessage(tokens []string, notification Notification, baseURL string) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: notification.Data,
		Webpush: &messaging.WebpushConfig{
			Headers: map[string]string{"Urgency": "high"},
			Notification: &messaging.WebpushNotification{
				Title: notification.Title,
				Body:  notification.Body,
				Icon:  baseURL + "/icons/icon-192.png",
				Badge: baseURL + "/icons/badge-72.png",
			},
			FCMOptions: &messaging.WebpushFCMOptions{
				Link: link(baseURL, notification.Path),
			},
		},
	}
}

func summarize(tokens []string, response *messaging.BatchResponse, isUnregistered func(error) bool) *BatchResult {
	result := &BatchResult{
		SuccessCount: response.SuccessCount,
		FailureCount: response.FailureCount,
	}
	for i, resp := range response.Responses {
		if resp.Success || i >= len(tokens) {
			continue
		}
		if isUnregistered(resp.Error) {
			result.Unregistered = append(result.Unregistered, tokens[i])
			continue
		}
		log.Printf("[FCM] Failed to send to token %s: %v", shorten(tokens[i]), resp.Error)
	}
	return result
}

// Chunk splits tokens into consecutive groups of at most size.
func Chunk(tokens []string, size int) [][]string {
	if size <= 0 {
		size = MaxMulticastTokens
	}
	var chunks [][]string
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[start:end])
	}
	return chunks
}

func link(baseURL, path string) string {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return baseURL + path
}

func shorten(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
