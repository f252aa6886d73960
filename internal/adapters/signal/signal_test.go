package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/CollabRelay/internal/app"
	"github.com/dkeye/CollabRelay/internal/app/orch"
	"github.com/dkeye/CollabRelay/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *SignalWSController) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(),
		Policy:   app.KickPolicy{},
	}
	ctl := NewSignalWSController(o, opts)

	r := gin.New()
	r.GET("/ws", ctl.HandleSignal)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, ctl
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func readFrame(t *testing.T, c *websocket.Conn) (string, []byte) {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	typ, err := protocol.DecodeType(data)
	if err != nil {
		t.Fatalf("Server sent malformed frame %s: %v", data, err)
	}
	return typ, data
}

func expect(t *testing.T, c *websocket.Conn, want string) []byte {
	t.Helper()
	typ, data := readFrame(t, c)
	if typ != want {
		t.Fatalf("Expected %s, got %s (%s)", want, typ, data)
	}
	return data
}

// waitFor skips frames until one of type want arrives.
func waitFor(t *testing.T, c *websocket.Conn, want string) []byte {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if typ, data := readFrame(t, c); typ == want {
			return data
		}
	}
	t.Fatalf("Timed out waiting for %s", want)
	return nil
}

func send(t *testing.T, c *websocket.Conn, v string) {
	t.Helper()
	if err := c.WriteMessage(websocket.TextMessage, []byte(v)); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
}

func joinMsg(room, id string) string {
	return `{"type":"join","roomId":"` + room + `","user":{"id":"` + id + `","name":"` + id + `","color":"#123456"}}`
}

func TestWelcomeOnConnect(t *testing.T) {
	srv, _ := newTestServer(t, DefaultOptions())
	c := dial(t, srv)

	var w protocol.Welcome
	if err := json.Unmarshal(expect(t, c, protocol.TypeWelcome), &w); err != nil {
		t.Fatalf("Failed to decode welcome: %v", err)
	}
	if !strings.HasPrefix(w.ClientID, "conn-") {
		t.Errorf("Expected conn- client id, got %q", w.ClientID)
	}
}

func TestJoinAndRelay(t *testing.T) {
	srv, _ := newTestServer(t, DefaultOptions())
	a := dial(t, srv)
	b := dial(t, srv)
	expect(t, a, protocol.TypeWelcome)
	expect(t, b, protocol.TypeWelcome)

	send(t, a, joinMsg("room-1", "alice"))
	expect(t, a, protocol.TypeUsersList)
	expect(t, a, protocol.TypeFileList)

	send(t, b, joinMsg("room-1", "bob"))
	var list protocol.UsersList
	if err := json.Unmarshal(expect(t, b, protocol.TypeUsersList), &list); err != nil {
		t.Fatalf("Failed to decode users-list: %v", err)
	}
	if len(list.Users) != 2 {
		t.Errorf("Expected 2 users, got %d", len(list.Users))
	}
	var files protocol.FileList
	if err := json.Unmarshal(expect(t, b, protocol.TypeFileList), &files); err != nil {
		t.Fatalf("Failed to decode file-list: %v", err)
	}
	if len(files.Files) != 2 {
		t.Errorf("Expected 2 default files, got %d", len(files.Files))
	}
	expect(t, a, protocol.TypeUserJoined)

	op := `{"type":"file-operation","fileName":"main.js","operation":{"type":"insert","position":{"lineNumber":1,"column":1},"text":"X"}}`
	send(t, a, op)
	if got := expect(t, b, protocol.TypeFileOperation); string(got) != op {
		t.Errorf("Expected verbatim relay, got %s", got)
	}

	send(t, b, `{"type":"file-created","fileName":"new.txt","content":"hi"}`)
	expect(t, a, protocol.TypeFileCreated)
	expect(t, b, protocol.TypeFileCreated)

	send(t, a, `{"type":"leave"}`)
	var left protocol.UserLeft
	if err := json.Unmarshal(expect(t, b, protocol.TypeUserLeft), &left); err != nil {
		t.Fatalf("Failed to decode user-left: %v", err)
	}
	if left.UserID != "alice" {
		t.Errorf("Expected alice left, got %s", left.UserID)
	}
}

func TestMalformedFrameGetsError(t *testing.T) {
	srv, _ := newTestServer(t, DefaultOptions())
	c := dial(t, srv)
	expect(t, c, protocol.TypeWelcome)

	send(t, c, `not json`)
	expect(t, c, protocol.TypeError)

	send(t, c, `{"type":"join","roomId":"r"}`)
	expect(t, c, protocol.TypeError)

	// Unknown types are ignored without a reply; the connection stays usable.
	send(t, c, `{"type":"bogus"}`)
	send(t, c, `{"type":"ping"}`)
	expect(t, c, protocol.TypePong)
}

func TestDisconnectNotifiesPeers(t *testing.T) {
	srv, _ := newTestServer(t, DefaultOptions())
	a := dial(t, srv)
	b := dial(t, srv)
	expect(t, a, protocol.TypeWelcome)
	expect(t, b, protocol.TypeWelcome)

	send(t, a, joinMsg("r", "alice"))
	expect(t, a, protocol.TypeUsersList)
	send(t, b, joinMsg("r", "bob"))
	expect(t, b, protocol.TypeUsersList)

	a.Close()
	waitFor(t, b, protocol.TypeUserLeft)
}

func TestHeartbeatTerminatesSilentPeer(t *testing.T) {
	opts := DefaultOptions()
	opts.PingPeriod = 50 * time.Millisecond
	srv, _ := newTestServer(t, opts)

	silent := dial(t, srv)
	peer := dial(t, srv)
	expect(t, silent, protocol.TypeWelcome)
	send(t, silent, joinMsg("r", "ghost"))
	expect(t, silent, protocol.TypeUsersList)
	expect(t, peer, protocol.TypeWelcome)
	send(t, peer, joinMsg("r", "bob"))

	// silent stops reading here, so it never answers another ping.
	var left protocol.UserLeft
	if err := json.Unmarshal(waitFor(t, peer, protocol.TypeUserLeft), &left); err != nil {
		t.Fatalf("Failed to decode user-left: %v", err)
	}
	if left.UserID != "ghost" {
		t.Errorf("Expected ghost terminated, got %s", left.UserID)
	}
}

func TestRateLimitDropsExcessFrames(t *testing.T) {
	opts := DefaultOptions()
	opts.RateLimit = 0.001
	opts.RateBurst = 2
	srv, _ := newTestServer(t, opts)
	c := dial(t, srv)
	expect(t, c, protocol.TypeWelcome)

	for i := 0; i < 3; i++ {
		send(t, c, `{"type":"ping"}`)
	}
	expect(t, c, protocol.TypePong)
	expect(t, c, protocol.TypePong)

	c.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := c.ReadMessage(); err == nil {
		t.Errorf("Expected third frame dropped, got %s", data)
	}
}

func TestShutdownDrainsBeforeClose(t *testing.T) {
	srv, ctl := newTestServer(t, DefaultOptions())
	c := dial(t, srv)
	expect(t, c, protocol.TypeWelcome)

	ctl.Orch.Shutdown()

	expect(t, c, protocol.TypeServerShutdown)
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.CloseNormalClosure {
		t.Errorf("Expected normal close after notice, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ctl.Wait(ctx); err != nil {
		t.Errorf("Expected all connections finished, got %v", err)
	}
}

func TestRateLimitSparesFileOperations(t *testing.T) {
	opts := DefaultOptions()
	opts.RateLimit = 0.001
	opts.RateBurst = 2
	srv, _ := newTestServer(t, opts)
	a := dial(t, srv)
	b := dial(t, srv)
	expect(t, a, protocol.TypeWelcome)
	expect(t, b, protocol.TypeWelcome)

	send(t, a, joinMsg("r", "alice"))
	expect(t, a, protocol.TypeUsersList)
	expect(t, a, protocol.TypeFileList)

	const edits = 200
	op := `{"type":"file-operation","fileName":"main.js","operation":{"type":"insert","position":{"lineNumber":1,"column":1},"text":"x"}}`
	for i := 0; i < edits; i++ {
		send(t, a, op)
		send(t, a, `{"type":"cursor-position","position":{"lineNumber":1,"column":1}}`)
	}
	// Frames from one connection are handled in order, so the echoed
	// file-created marks the end of the edits.
	send(t, a, `{"type":"file-created","fileName":"done.txt","content":""}`)
	expect(t, a, protocol.TypeFileCreated)

	send(t, b, joinMsg("r", "bob"))
	expect(t, b, protocol.TypeUsersList)
	var list protocol.FileList
	if err := json.Unmarshal(expect(t, b, protocol.TypeFileList), &list); err != nil {
		t.Fatalf("Failed to decode file-list: %v", err)
	}
	content := list.Files[0].Content
	if !strings.HasPrefix(content, strings.Repeat("x", edits)+"//") {
		t.Errorf("Expected all %d inserts applied, got %d", edits, strings.Count(content, "x"))
	}
}

func TestLargeFrameWithinDefaultLimit(t *testing.T) {
	srv, _ := newTestServer(t, DefaultOptions())
	a := dial(t, srv)
	b := dial(t, srv)
	expect(t, a, protocol.TypeWelcome)
	expect(t, b, protocol.TypeWelcome)

	send(t, a, joinMsg("r", "alice"))
	expect(t, a, protocol.TypeUsersList)
	expect(t, a, protocol.TypeFileList)
	send(t, b, joinMsg("r", "bob"))
	expect(t, b, protocol.TypeUsersList)
	expect(t, b, protocol.TypeFileList)
	expect(t, a, protocol.TypeUserJoined)

	body := strings.Repeat("a", 2<<20)
	send(t, a, `{"type":"file-created","fileName":"big.txt","content":"`+body+`"}`)

	var created protocol.FileCreatedPayload
	if err := json.Unmarshal(expect(t, b, protocol.TypeFileCreated), &created); err != nil {
		t.Fatalf("Failed to decode file-created: %v", err)
	}
	if len(created.Content) != len(body) {
		t.Errorf("Expected %d bytes relayed, got %d", len(body), len(created.Content))
	}
	expect(t, a, protocol.TypeFileCreated)

	send(t, a, `{"type":"ping"}`)
	expect(t, a, protocol.TypePong)
}

func TestRefusesConnectionsWhileDraining(t *testing.T) {
	srv, ctl := newTestServer(t, DefaultOptions())
	ctl.Orch.Shutdown()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		c.Close()
		t.Fatal("Expected upgrade to be refused while draining")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %v", resp)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ctl.Wait(ctx); err != nil {
		t.Errorf("Expected no connections to wait for, got %v", err)
	}
}
