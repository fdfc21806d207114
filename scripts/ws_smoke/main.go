package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/r6voip-server/internal/proto"
)

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3001/ws", "WebSocket address")
	name := flag.String("name", "tester", "display name")
	room := flag.String("room", "", "room code to join; empty creates a new room")
	listen := flag.Duration("listen", 0, "keep printing room events for this long after the ack")
	timeout := flag.Duration("timeout", 5*time.Second, "timeout for connecting and the create/join round trip")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+*listen)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	req := proto.Inbound{ID: "smoke"}
	var payload any
	if *room == "" {
		req.Type = proto.InboundTypeCreateRoom
		payload = proto.CreateRoomData{Name: *name}
	} else {
		req.Type = proto.InboundTypeJoinRoom
		payload = proto.JoinRoomData{RoomID: *room, Name: *name}
	}
	if req.Data, err = json.Marshal(payload); err != nil {
		return fmt.Errorf("marshal %s: %w", req.Type, err)
	}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch f.Type {
		case proto.OutboundTypeError:
			return fmt.Errorf("protocol error %s: %s", f.Error.Code, f.Error.Msg)
		case proto.OutboundTypeEvent:
			fmt.Printf("event=%s data=%s\n", f.Event, f.Data)
		case proto.OutboundTypeAck:
			var failed proto.ErrorAck
			if err := json.Unmarshal(f.Data, &failed); err == nil && failed.Error != "" {
				return fmt.Errorf("%s rejected (%s): %s", req.Type, failed.Code, failed.Error)
			}
			var ack proto.RoomAck
			if err := json.Unmarshal(f.Data, &ack); err != nil {
				return fmt.Errorf("unmarshal ack: %w", err)
			}
			fmt.Printf("room=%s host=%v users=%d\n", ack.RoomID, ack.IsHost, len(ack.Users))
			for _, u := range ack.Users {
				fmt.Printf("  %s %q host=%v muted=%v\n", u.SocketID, u.Name, u.IsHost, u.IsMuted)
			}
			if *listen == 0 {
				return nil
			}
			return printEvents(conn, *listen)
		}
	}
}

func printEvents(conn *websocket.Conn, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("event=%s data=%s\n", f.Event, f.Data)
	}
}
