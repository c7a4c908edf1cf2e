// Package main runs a demo WebSocket client for run events: it subscribes
// to a scenario, posts a generated problem for it and prints the events of
// the run until it finishes.
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

	"fleetplan/internal/model"
	"fleetplan/internal/scenario"
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
	scenarioID := "demo"

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]any{"scenarioId": scenarioID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
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
			var evt struct {
				Type string `json:"type"`
			}
			if m.Type == "next" && json.Unmarshal(m.Payload, &evt) == nil && evt.Type == "run.finished" {
				return
			}
		}
	}()

	// give the subscription a moment to register before the run starts
	time.Sleep(300 * time.Millisecond)
	req := model.OptimizeRequest{
		ScenarioID:   scenarioID,
		TimeBudgetMs: 3000,
		Seed:         1,
		Problem:      scenario.Generate(1, scenario.DefaultGenerateOptions()),
	}
	body, _ := json.Marshal(req)
	resp, err := http.Post(base+"/v1/optimize", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out model.OptimizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatal(err)
	}
	log.Printf("run %s: fulfilled %d, unassigned %d, cost %.2f", out.RunID, out.Plan.Fulfilled, len(out.Plan.Unassigned), out.Plan.TotalCost)

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
