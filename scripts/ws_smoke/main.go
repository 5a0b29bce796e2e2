package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/taskwire/taskwire-server/internal/proto"
)

// Manual smoke client: connect with a token, join a team room, print every
// event the server pushes.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "JWT from /api/auth/login")
	room := flag.String("room", "", "team id or TEAM- invite code to join")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &websocket.DialOptions{}
	if *token != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + *token}}
	}

	conn, _, err := websocket.Dial(ctx, *addr, opts)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if *room != "" {
		payload, err := json.Marshal(proto.JoinRoomData{RoomID: *room})
		if err != nil {
			return fmt.Errorf("marshal join_room: %w", err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Event: proto.EventJoinRoom, Data: payload}); err != nil {
			return fmt.Errorf("send join_room: %w", err)
		}
	}

	fmt.Printf("Connected to %s, waiting for events. Ctrl+C to exit.\n", *addr)

	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		data, _ := json.Marshal(out.Data)
		fmt.Printf("[%s] %s\n", out.Event, data)
	}
}
