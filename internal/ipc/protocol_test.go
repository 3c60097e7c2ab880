package ipc

import (
	"encoding/json"
	"net"
	"testing"
)

func TestConnSendRecvRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sc := NewConn(server)
	cc := NewConn(client)

	go func() {
		_ = sc.SendTyped("cmd-1", TypeCommand, Command{Method: "get_info"})
	}()

	env, err := cc.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if env.Type != TypeCommand || env.ID != "cmd-1" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Seq != 1 {
		t.Fatalf("expected first send to carry seq 1, got %d", env.Seq)
	}

	var cmd Command
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if cmd.Method != "get_info" {
		t.Fatalf("expected method get_info, got %q", cmd.Method)
	}
}

func TestConnRejectsOversizedMessage(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sc := NewConn(server)

	huge := make([]byte, MaxMessageSize+1)
	err := sc.Send(&Envelope{ID: "x", Type: TypeCommand, Payload: huge})
	if err == nil {
		t.Fatal("expected error for oversized message")
	}
}
