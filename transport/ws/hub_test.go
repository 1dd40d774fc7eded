package ws_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/krotik/nodeengine/edits"
	"github.com/krotik/nodeengine/engine"
	"github.com/krotik/nodeengine/events"
	"github.com/krotik/nodeengine/node"
	"github.com/krotik/nodeengine/transport/ws"
	"github.com/krotik/nodeengine/values"
	"github.com/krotik/nodeengine/wire"
)

func newTestServer(e *engine.Engine) (*httptest.Server, string) {
	hub := ws.NewHub(e)
	srv := httptest.NewServer(ws.NewHandler(hub))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	return srv, url
}

func dial(t *testing.T, url string) *gorillaws.Conn {
	t.Helper()
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func sendEnvelope(t *testing.T, conn *gorillaws.Conn, env wire.Envelope) {
	t.Helper()
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(gorillaws.TextMessage, data); err != nil {
		t.Fatal(err)
	}
}

func readEnvelope(t *testing.T, conn *gorillaws.Conn) wire.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}
	return env
}

func TestHelloHandshake(t *testing.T) {
	e := engine.New(engine.DefaultConfig())
	srv, url := newTestServer(e)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	env, err := wire.Encode(wire.MsgHello, "h1", wire.HelloPayload{ProtocolVersion: "1"})
	if err != nil {
		t.Fatal(err)
	}
	sendEnvelope(t, conn, env)

	reply := readEnvelope(t, conn)
	if reply.Msg != wire.MsgHelloAck || reply.ReqId != "h1" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	var ack wire.HelloAckPayload
	if err := reply.Decode(&ack); err != nil {
		t.Fatal(err)
	}
	if ack.ProtocolVersion != ws.ProtocolVersion {
		t.Error("unexpected protocol version:", ack.ProtocolVersion)
	}
}

func TestGetSnapshotRoundTrip(t *testing.T) {
	e := engine.New(engine.DefaultConfig())
	childId := e.CreateNode("Widget", node.Passive, node.NoneData(), node.Metadata{ShortName: "w", Enabled: true, Label: "A widget"}, nil)
	if err := e.AddChild(e.RootId(), childId); err != nil {
		t.Fatal(err)
	}

	srv, url := newTestServer(e)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	req, _ := wire.Encode(wire.MsgGetSnapshot, "s1", wire.GetSnapshotPayload{Scope: wire.Scope{Mode: wire.ScopeRoot}})
	sendEnvelope(t, conn, req)

	reply := readEnvelope(t, conn)
	if reply.Msg != wire.MsgSnapshot || reply.ReqId != "s1" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	var snap wire.SnapshotPayload
	if err := reply.Decode(&snap); err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, n := range snap.Nodes {
		if n.Meta.ShortName == "w" && n.Meta.Label == "A widget" {
			found = true
		}
	}
	if !found {
		t.Error("expected the widget node to appear in the snapshot:", snap.Nodes)
	}
}

func TestSetParamAppliesAndAcks(t *testing.T) {
	e := engine.New(engine.DefaultConfig())
	paramId := e.CreateNode(engine.TypeParameter, node.Passive,
		node.NewParameterData(node.ParameterData{Value: values.Float(0.0)}),
		node.Metadata{ShortName: "p", Enabled: true}, nil)
	if err := e.AddChild(e.RootId(), paramId); err != nil {
		t.Fatal(err)
	}

	srv, url := newTestServer(e)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	req, _ := wire.Encode(wire.MsgSetParam, "p1", wire.SetParamPayload{
		ParamNodeId: paramId,
		Value:       values.Float(0.75),
		Propagation: edits.Immediate,
	})
	sendEnvelope(t, conn, req)

	reply := readEnvelope(t, conn)
	if reply.Msg != wire.MsgAck {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	var ack wire.AckPayload
	if err := reply.Decode(&ack); err != nil {
		t.Fatal(err)
	}
	if !ack.Ok {
		t.Error("expected SetParam to be acknowledged as ok:", ack.Error)
	}

	n, ok := e.Store.Get(paramId)
	if !ok || !values.Equal(n.Data.Parameter.Value, values.Float(0.75)) {
		t.Error("expected the parameter's value to have been applied:", n.Data.Parameter.Value)
	}
}

func TestDeleteNodeAcksAndRemoves(t *testing.T) {
	e := engine.New(engine.DefaultConfig())
	childId := e.CreateNode("Widget", node.Passive, node.NoneData(), node.Metadata{ShortName: "w", Enabled: true}, nil)
	if err := e.AddChild(e.RootId(), childId); err != nil {
		t.Fatal(err)
	}

	srv, url := newTestServer(e)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	req, _ := wire.Encode(wire.MsgDeleteNode, "d1", wire.DeleteNodePayload{Node: childId})
	sendEnvelope(t, conn, req)

	reply := readEnvelope(t, conn)
	var ack wire.AckPayload
	if err := reply.Decode(&ack); err != nil {
		t.Fatal(err)
	}
	if !ack.Ok {
		t.Error("expected DeleteNode to be acknowledged as ok:", ack.Error)
	}
	if e.Store.Exists(childId) {
		t.Error("expected the node to be removed from the store")
	}
}

func TestSubscribeReceivesEventBatch(t *testing.T) {
	e := engine.New(engine.DefaultConfig())
	paramId := e.CreateNode(engine.TypeParameter, node.Passive,
		node.NewParameterData(node.ParameterData{Value: values.Int(1)}),
		node.Metadata{ShortName: "p", Enabled: true}, nil)
	if err := e.AddChild(e.RootId(), paramId); err != nil {
		t.Fatal(err)
	}

	srv, url := newTestServer(e)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	sub, _ := wire.Encode(wire.MsgSubscribe, "sub1", wire.SubscribePayload{
		Scope: wire.Scope{Mode: wire.ScopeRoot},
		From:  events.EventTime{},
	})
	sendEnvelope(t, conn, sub)

	ack := readEnvelope(t, conn)
	if ack.Msg != wire.MsgAck {
		t.Fatalf("expected an Ack for Subscribe, got %+v", ack)
	}

	// Subscribing from the zero EventTime immediately catches the new
	// subscriber up on everything already logged (e.g. the root and
	// parameter's own NodeCreated events), delivered as one EventBatch
	// before any further request.
	catchUp := readEnvelope(t, conn)
	if catchUp.Msg != wire.MsgEventBatch {
		t.Fatalf("expected a catch-up EventBatch, got %+v", catchUp)
	}

	setReq, _ := wire.Encode(wire.MsgSetParam, "p1", wire.SetParamPayload{
		ParamNodeId: paramId,
		Value:       values.Int(2),
		Propagation: edits.Immediate,
	})
	sendEnvelope(t, conn, setReq)

	// The SetParam Ack and the EventBatch both arrive off the back of the
	// same Handle call; accept either order.
	var sawBatch bool
	for i := 0; i < 2; i++ {
		msg := readEnvelope(t, conn)
		if msg.Msg == wire.MsgEventBatch {
			sawBatch = true
			var batch wire.EventBatchPayload
			if err := msg.Decode(&batch); err != nil {
				t.Fatal(err)
			}
			var hasParamChanged bool
			for _, ev := range batch.Events {
				if ev.Kind == "ParamChanged" {
					hasParamChanged = true
				}
			}
			if !hasParamChanged {
				t.Error("expected a ParamChanged event in the batch:", batch.Events)
			}
		}
	}
	if !sawBatch {
		t.Error("expected to receive an EventBatch after SetParam")
	}
}
