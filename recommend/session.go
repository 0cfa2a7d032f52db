// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/honeycombio/beeline-go"
	"nhooyr.io/websocket"

	"github.com/chuangbahenbccs/TravelApp/recommend/nearby"
	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

// StreamSession pushes a recommender's state to a WebSocket client after
// every change and runs the commands the client sends back.
type StreamSession struct {
	conn        *websocket.Conn
	recommender *nearby.Recommender
}

type Command struct {
	Op      string  `json:"op"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	PlaceID string  `json:"placeId"`
}

type StreamMessage struct {
	Type    string        `json:"type"`
	State   *nearby.State `json:"state,omitempty"`
	Message string        `json:"message,omitempty"`
}

func NewStreamSession(rec *nearby.Recommender, rw http.ResponseWriter, r *http.Request) (*StreamSession, error) {
	c, err := websocket.Accept(rw, r, &websocket.AcceptOptions{
		OriginPatterns:     []string{"null"},
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, err
	}
	return &StreamSession{
		conn:        c,
		recommender: rec,
	}, nil
}

func (ss *StreamSession) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	updates, unsubscribe := ss.recommender.Subscribe()
	defer unsubscribe()

	// Only this goroutine writes to the connection.
	failures := make(chan string, 4)
	go func() {
		defer cancel()
		for {
			typ, data, err := ss.conn.Read(ctx)
			if err != nil {
				if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
					log.Printf("Reading from stream failed: %v", err)
				}
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			if err := ss.handleCommand(ctx, data); err != nil {
				select {
				case failures <- err.Error():
				default:
				}
			}
		}
	}()

	initial := ss.recommender.State()
	if err := ss.send(ctx, StreamMessage{Type: "state", State: &initial}); err != nil {
		log.Printf("Sending initial state failed: %v", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			_ = ss.conn.Close(websocket.StatusNormalClosure, "")
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := ss.send(ctx, StreamMessage{Type: "state", State: &state}); err != nil {
				log.Printf("Sending state failed: %v", err)
				_ = ss.conn.Close(websocket.StatusInternalError, "Sending state failed.")
				return
			}
		case msg := <-failures:
			if err := ss.send(ctx, StreamMessage{Type: "error", Message: msg}); err != nil {
				log.Printf("Sending error failed: %v", err)
				_ = ss.conn.Close(websocket.StatusInternalError, "Sending error failed.")
				return
			}
		}
	}
}

func (ss *StreamSession) handleCommand(ctx context.Context, data []byte) error {
	ctx, span := beeline.StartSpan(ctx, "stream.command")
	defer span.Send()
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		span.AddField("error", err)
		return fmt.Errorf("malformed command: %w", err)
	}
	span.AddField("op", cmd.Op)
	switch cmd.Op {
	case "search":
		if cmd.Lat < -90 || cmd.Lat > 90 || cmd.Lon < -180 || cmd.Lon > 180 {
			return fmt.Errorf("location %v,%v is out of range", cmd.Lat, cmd.Lon)
		}
		ss.recommender.Search(ctx, places.Coordinates{Latitude: cmd.Lat, Longitude: cmd.Lon}, cmd.Name)
	case "refresh":
		ss.recommender.Refresh(ctx)
	case "filter":
		return ss.recommender.SetFilter(cmd.Type)
	case "details":
		if _, err := ss.recommender.PlaceDetails(ctx, cmd.PlaceID); err != nil {
			return err
		}
	case "clear-selection":
		ss.recommender.ClearSelectedPlace()
	default:
		return fmt.Errorf("unknown op %q", cmd.Op)
	}
	return nil
}

func (ss *StreamSession) send(ctx context.Context, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return ss.conn.Write(ctx, websocket.MessageText, data)
}
