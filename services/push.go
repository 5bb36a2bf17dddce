package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// Expo accepts at most 100 messages per request.
const pushChunkSize = 100

var pushGatewayURL = "https://exp.host/--/api/v2/push/send"

// PushMessage is one message for the Expo push gateway.
type PushMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

// IsExpoPushToken validates the token format before it is sent to the
// gateway; Expo rejects whole batches containing malformed tokens.
func IsExpoPushToken(token string) bool {
	if !strings.HasSuffix(token, "]") {
		return false
	}
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

type pushTicket struct {
	Status  string `json:"status"` // ok | error
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

// SendPushMessages dispatches messages in chunks of 100. Invalid tokens are
// dropped up front; per-chunk failures are logged, not retried.
func SendPushMessages(messages []PushMessage) error {
	valid := messages[:0]
	for _, m := range messages {
		if IsExpoPushToken(m.To) {
			valid = append(valid, m)
		} else {
			log.Printf("push: dropping invalid token %q", m.To)
		}
	}

	var lastErr error
	for start := 0; start < len(valid); start += pushChunkSize {
		end := start + pushChunkSize
		if end > len(valid) {
			end = len(valid)
		}
		if err := sendPushChunk(valid[start:end]); err != nil {
			log.Printf("push: chunk %d-%d failed: %v", start, end, err)
			lastErr = err
		}
	}
	return lastErr
}

func sendPushChunk(chunk []PushMessage) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return err
	}

	res, err := http.Post(pushGatewayURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("push gateway status %d: %s", res.StatusCode, string(body))
	}

	var receipt struct {
		Data []pushTicket `json:"data"`
	}
	if err := json.Unmarshal(body, &receipt); err != nil {
		return err
	}
	for i, ticket := range receipt.Data {
		if ticket.Status != "ok" {
			log.Printf("push: token %q rejected: %s (%s)", chunk[i].To, ticket.Message, ticket.Details.Error)
		}
	}
	return nil
}
