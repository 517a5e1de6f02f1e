// Package main runs a demo WebSocket client for plan events: it imports
// a couple of offers, queues a plan, and watches the live stream until
// the plan completes.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Seed the catalog with one flight.
	offers := []byte(`{"tenantId":"t_demo","offers":{"flights":[{"airline":"LA","origin":"Sao Paulo","destination":"Rio de Janeiro","departureTime":"2026-09-01T09:00:00Z","arrivalTime":"2026-09-01T10:00:00Z","price":350,"durationMin":60}]}}`)
	post(base+"/v1/offers", offers)

	// Queue an asynchronous plan against the catalog.
	planBody := []byte(`{"tenantId":"t_demo","request":{
        "originCities":[{"name":"Sao Paulo","lat":-23.5505,"lng":-46.6333}],
        "destinationCities":[{"name":"Rio de Janeiro","lat":-22.9068,"lng":-43.1729}],
        "paxAdults":1,"startDate":"2026-09-01T00:00:00Z","weightCost":0.7,"weightTime":0.3},
        "offers":{}}`)
	resp := post(base+"/v1/plans", planBody)
	var job struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &job); err != nil || job.ID == "" {
		log.Fatalf("no plan id in response: %s", resp)
	}
	log.Printf("Plan ID: %s", job.ID)

	// Connect WS and watch the plan.
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/plans/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]any{"planId": job.ID})
	if err := c.WriteJSON(wsMessage{Type: "watch", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
			if m.Type == "next" && bytes.Contains(m.Payload, []byte("plan.done")) {
				return
			}
		}
	}()

	select {
	case <-time.After(30 * time.Second):
		log.Printf("timed out waiting for plan completion")
	case <-done:
	}
}

func post(url string, body []byte) []byte {
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes()
}
