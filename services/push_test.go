package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsExpoPushToken(t *testing.T) {
	valid := []string{
		"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]",
		"ExpoPushToken[yyyy]",
	}
	for _, token := range valid {
		if !IsExpoPushToken(token) {
			t.Errorf("IsExpoPushToken(%q) = false, want true", token)
		}
	}

	invalid := []string{
		"",
		"abcdef",
		"ExponentPushToken[missing-bracket",
		"FCMToken[zzzz]",
	}
	for _, token := range invalid {
		if IsExpoPushToken(token) {
			t.Errorf("IsExpoPushToken(%q) = true, want false", token)
		}
	}
}

func TestSendPushMessagesDropsInvalidTokens(t *testing.T) {
	var received []PushMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var chunk []PushMessage
		json.NewDecoder(r.Body).Decode(&chunk)
		received = append(received, chunk...)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": make([]pushTicket, len(chunk)),
		})
	}))
	defer srv.Close()

	old := pushGatewayURL
	pushGatewayURL = srv.URL
	defer func() { pushGatewayURL = old }()

	messages := []PushMessage{
		{To: "ExponentPushToken[good]", Title: "a"},
		{To: "not-a-token", Title: "b"},
		{To: "ExpoPushToken[also-good]", Title: "c"},
	}
	if err := SendPushMessages(messages); err != nil {
		t.Fatalf("SendPushMessages: %v", err)
	}

	if len(received) != 2 {
		t.Fatalf("gateway received %d messages, want 2", len(received))
	}
	for _, m := range received {
		if !IsExpoPushToken(m.To) {
			t.Errorf("invalid token reached the gateway: %q", m.To)
		}
	}
}
