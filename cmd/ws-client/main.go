package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/pv/algoviz-go/internal/api"
)

func main() {
	var (
		raw     bool
		limit   int
		baseURL string
		session string
	)
	flag.StringVar(&baseURL, "url", "ws://127.0.0.1:8080", "base WebSocket URL of algoviz server")
	flag.StringVar(&session, "session", "", "session id to follow (required)")
	flag.BoolVar(&raw, "raw", false, "print raw JSON messages")
	flag.IntVar(&limit, "limit", 0, "stop after N state messages (0 = infinite)")
	flag.Parse()

	if session == "" {
		log.Fatalf("-session is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		log.Fatalf("invalid url: %v", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		log.Fatalf("url must start with ws:// or wss://")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/ws/sessions/" + url.PathEscape(session)

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("dial %s: %v (status %s)", u, err, resp.Status)
		}
		log.Fatalf("dial %s: %v", u, err)
	}
	defer conn.Close()
	log.Printf("connected to %s", u)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	states := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("connection closed")
				return
			}
			log.Fatalf("read: %v", err)
		}
		if raw {
			fmt.Println(string(data))
		}
		var msg api.StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("bad message: %v", err)
			continue
		}
		if !raw {
			printMessage(msg)
		}
		switch msg.Type {
		case api.MessageState:
			states++
			if limit > 0 && states >= limit {
				return
			}
		case api.MessageClosed:
			log.Printf("session %s closed", msg.Session)
			return
		}
	}
}

func printMessage(msg api.StreamMessage) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", msg.Type)
	if msg.State != nil {
		st := msg.State
		fmt.Fprintf(&b, " %s step %d/%d %s x%g", st.Algorithm, st.Index+1, st.Length, st.Mode, st.Speed)
	}
	if msg.Snapshot != nil {
		snap := msg.Snapshot
		fmt.Fprintf(&b, " values=%v", snap.Values)
		if snap.HasLine() {
			fmt.Fprintf(&b, " line=%d", snap.Line)
		}
		if snap.Description != "" {
			fmt.Fprintf(&b, " %q", snap.Description)
		}
	}
	fmt.Println(b.String())
}
