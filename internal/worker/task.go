package worker

import "time"

// TopicShortenRequested carries shorten tasks from webhook ingest to
// the task runner.
const TopicShortenRequested = "shorten.requested"

// ShortenTask is one unit of asynchronous work: shorten a candidate
// URL and reply to the sender. Attempt counts how many times the task
// has already run; re-enqueued tasks carry it forward so the retry
// ceiling holds across deliveries. NotBefore carries the backoff
// delay inside the task itself: the retry sits in the broker, not in
// a process-local timer, so a worker restart cannot drop it.
type ShortenTask struct {
	ReplyToken string    `json:"replyToken"`
	Text       string    `json:"text"`
	Attempt    int       `json:"attempt"`
	ReceivedAt time.Time `json:"receivedAt"`
	NotBefore  time.Time `json:"notBefore,omitzero"`
}
