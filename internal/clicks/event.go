// Package clicks carries redirect click events from the HTTP surface
// to an asynchronous counter update, so redirects never wait on the
// database write.
package clicks

import "time"

// TopicLinkClicked carries click events from the redirect handler to
// the counter consumer.
const TopicLinkClicked = "link.clicked"

// Event is one redirect through a short link.
type Event struct {
	Code       string    `json:"code"`
	OccurredAt time.Time `json:"occurredAt"`
	ClientIP   string    `json:"clientIp,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
}
