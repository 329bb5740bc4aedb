package webhook

import "encoding/json"

// Payload is the envelope delivered to the webhook endpoint.
type Payload struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is one platform event. Only text message events produce work;
// everything else (follows, stickers, unsends) is ignored.
type Event struct {
	Type       string  `json:"type"`
	ReplyToken string  `json:"replyToken"`
	Timestamp  int64   `json:"timestamp"`
	Source     Source  `json:"source"`
	Message    Message `json:"message"`
}

// Source identifies where the event originated.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId,omitempty"`
}

// Message is the message content of a message event.
type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParsePayload decodes a raw webhook body.
func ParsePayload(body []byte) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

// IsTextMessage reports whether the event carries user-entered text.
func (e *Event) IsTextMessage() bool {
	return e.Type == "message" && e.Message.Type == "text"
}
