package web

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/depthkit/go-depthview/pkg/viewer"
)

// fakePipeline implements Pipeline for tests.
type fakePipeline struct {
	mu     sync.Mutex
	status viewer.Status
	queued []viewer.Event
	full   bool
}

func (f *fakePipeline) Status() viewer.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakePipeline) Enqueue(e viewer.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.queued = append(f.queued, e)
	return true
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{
		status: viewer.Status{
			Device:   "SIM-0001",
			FPS:      30,
			Settings: viewer.DefaultSettings(),
		},
	}
}

func TestServer_Status(t *testing.T) {
	p := newFakePipeline()
	s := NewServer(":0", p, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/status", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got viewer.Status
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Device != "SIM-0001" || got.FPS != 30 {
		t.Errorf("status = %+v", got)
	}
}

func TestServer_Settings(t *testing.T) {
	p := newFakePipeline()
	s := NewServer(":0", p, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/settings", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	var got map[string]any
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["confidence"] != float64(6) {
		t.Errorf("confidence = %v, want 6", got["confidence"])
	}
	if got["temporal"] != "off" {
		t.Errorf("temporal = %v, want off", got["temporal"])
	}
}

func TestServer_Control(t *testing.T) {
	p := newFakePipeline()
	s := NewServer(":0", p, nil)

	req, _ := http.NewRequest(http.MethodPost, "/api/control/confidence-up", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if len(p.queued) != 1 || p.queued[0] != viewer.EventConfidenceUp {
		t.Errorf("queued = %v, want [confidence-up]", p.queued)
	}
}

func TestServer_ControlUnknownEvent(t *testing.T) {
	p := newFakePipeline()
	s := NewServer(":0", p, nil)

	req, _ := http.NewRequest(http.MethodPost, "/api/control/warp-speed", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if len(p.queued) != 0 {
		t.Errorf("queued = %v, want empty", p.queued)
	}
}

func TestServer_ControlQueueFull(t *testing.T) {
	p := newFakePipeline()
	p.full = true
	s := NewServer(":0", p, nil)

	req, _ := http.NewRequest(http.MethodPost, "/api/control/toggle-recording", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestServer_StatusWebsocket(t *testing.T) {
	p := newFakePipeline()
	s := NewServer(":0", p, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.Serve(ln)
	defer s.Shutdown()

	url := "ws://" + ln.Addr().String() + "/ws/status"

	var conn *websocket.Conn
	for i := 0; i < 20; i++ {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got viewer.Status
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal %q: %v", msg, err)
	}
	if got.Device != "SIM-0001" {
		t.Errorf("streamed device = %q, want SIM-0001", got.Device)
	}
}
