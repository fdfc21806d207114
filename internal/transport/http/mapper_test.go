package http

import (
	"encoding/json"
	"testing"

	"github.com/vovakirdan/r6voip-server/internal/core"
	"github.com/vovakirdan/r6voip-server/internal/proto"
)

func TestInboundToCommand(t *testing.T) {
	cases := []struct {
		name string
		in   proto.Inbound
		want core.Command
	}{
		{
			name: "join",
			in:   proto.Inbound{Type: proto.InboundTypeJoinRoom, ID: "7", Data: json.RawMessage(`{"roomId":"ab2c","name":"Bob"}`)},
			want: core.Command{Kind: core.CommandJoinRoom, RequestID: "7", Room: "ab2c", Name: "Bob"},
		},
		{
			name: "mute",
			in:   proto.Inbound{Type: proto.InboundTypeToggleMute, Data: json.RawMessage(`{"isMuted":true}`)},
			want: core.Command{Kind: core.CommandToggleMute, Muted: true},
		},
		{
			name: "kick",
			in:   proto.Inbound{Type: proto.InboundTypeKickUser, ID: "k", Data: json.RawMessage(`{"targetSocketId":"abc"}`)},
			want: core.Command{Kind: core.CommandKickUser, RequestID: "k", Target: "abc"},
		},
		{
			name: "leave without data",
			in:   proto.Inbound{Type: proto.InboundTypeLeaveRoom},
			want: core.Command{Kind: core.CommandLeaveRoom},
		},
		{
			name: "create without data",
			in:   proto.Inbound{Type: proto.InboundTypeCreateRoom, ID: "c"},
			want: core.Command{Kind: core.CommandCreateRoom, RequestID: "c"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, perr := inboundToCommand(tc.in)
			if perr != nil {
				t.Fatalf("unexpected protocol error: %+v", perr)
			}
			if *got != tc.want {
				t.Fatalf("got %+v, want %+v", *got, tc.want)
			}
		})
	}
}

func TestInboundToCommandRejects(t *testing.T) {
	cases := []struct {
		name string
		in   proto.Inbound
		code string
	}{
		{"unknown type", proto.Inbound{Type: "msg"}, proto.ErrCodeUnknownType},
		{"bad payload", proto.Inbound{Type: proto.InboundTypeToggleMute, Data: json.RawMessage(`{"isMuted":"yes"}`)}, proto.ErrCodeBadRequest},
		{"peer without id", proto.Inbound{Type: proto.InboundTypeRegisterPeer, Data: json.RawMessage(`{}`)}, proto.ErrCodeBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, perr := inboundToCommand(tc.in)
			if perr == nil || perr.Code != tc.code {
				t.Fatalf("expected %s, got %+v", tc.code, perr)
			}
		})
	}
}

func TestOutboundSkipsAckWithoutID(t *testing.T) {
	_, ok := outboundFromEvent(&core.Event{Kind: core.EventAck, Ack: &core.Ack{Command: core.CommandCreateRoom}})
	if ok {
		t.Fatal("ack without request id must not be sent")
	}
}

func TestOutboundUserLeftNullHost(t *testing.T) {
	out, ok := outboundFromEvent(&core.Event{Kind: core.EventUserLeft, SocketID: "a", Name: "A"})
	if !ok {
		t.Fatal("user-left dropped")
	}
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"event","event":"user-left","data":{"socketId":"a","name":"A","wasHost":false,"newHostId":null}}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestAckDataForErrors(t *testing.T) {
	out, ok := outboundFromEvent(&core.Event{Kind: core.EventAck, Ack: &core.Ack{
		RequestID: "1",
		Command:   core.CommandKickUser,
		Error:     core.ErrNotHost,
	}})
	if !ok {
		t.Fatal("ack dropped")
	}
	data, isErr := out.Data.(proto.ErrorAck)
	if !isErr || data.Code != core.ErrCodeNotHost || data.Error != "Only the host can kick users" {
		t.Fatalf("unexpected ack data: %#v", out.Data)
	}
}
