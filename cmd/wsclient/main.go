// Command wsclient prints the live notifications of a wallet session.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type Message struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

func main() {
	url := flag.String("url", "ws://localhost:8888/api/v1/ws", "notifications endpoint")
	token := flag.String("token", os.Getenv("BOUNTY_SESSION_TOKEN"), "wallet session token")
	flag.Parse()

	if *token == "" {
		log.Fatal("a session token is required (-token or BOUNTY_SESSION_TOKEN)")
	}

	header := http.Header{}
	header.Add("Authorization", "Bearer "+*token)

	conn, _, err := websocket.DefaultDialer.Dial(*url, header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				log.Println("read error:", err)
				return
			}

			var msg Message
			if err := json.Unmarshal(p, &msg); err != nil {
				log.Println("json unmarshal error:", err)
				continue
			}
			out, _ := json.MarshalIndent(msg, "", "  ")
			log.Printf("Received:\n%s\n", out)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
	case <-interrupt:
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("write close:", err)
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
