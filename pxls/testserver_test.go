package pxls

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// testSite is a fake canvas service: an info document, raw pixel buffers,
// and a scriptable ws endpoint. Request counts are recorded per path.
type testSite struct {
	mu            sync.Mutex
	requestCounts map[string]int

	infoJson  string
	statsJson string
	buffers   map[bufferResource][]byte

	// when non-nil, requests to the path block until the channel closes
	holdInfo    chan struct{}
	holdBuffers chan struct{}

	// runs per ws connection; the connection closes when it returns
	stream func(ws *websocket.Conn)
	// closes once per completed ws handshake
	upgraded chan struct{}

	server *httptest.Server
}

func newTestSite(width int, height int, heatmapCooldown int) *testSite {
	site := &testSite{
		requestCounts: map[string]int{},
		buffers:       map[bufferResource][]byte{},
		upgraded:      make(chan struct{}, 16),
	}
	site.infoJson = fmt.Sprintf(`{
		"canvasCode": "13",
		"width": %d,
		"height": %d,
		"palette": [
			{"name": "White", "value": "#FFFFFF"},
			{"name": "Red", "value": "#FF0000"}
		],
		"cooldownInfo": {
			"type": "static",
			"staticCooldownSeconds": 60,
			"activityCooldown": {"steepness": 2.5}
		},
		"heatmapCooldown": %d,
		"maxStacked": 6,
		"authServices": {},
		"chatEnabled": true
	}`, width, height, heatmapCooldown)

	for _, resource := range []bufferResource{
		bufferColors,
		bufferInitialColors,
		bufferPlacemask,
		bufferHeatmap,
		bufferVirginmap,
	} {
		site.buffers[resource] = make([]byte, width*height)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		site.count(r.URL.Path)
		if hold := site.holdInfoChan(); hold != nil {
			<-hold
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(site.infoJson))
	})
	mux.HandleFunc("/stats/stats.json", func(w http.ResponseWriter, r *http.Request) {
		site.count(r.URL.Path)
		site.mu.Lock()
		statsJson := site.statsJson
		site.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(statsJson))
	})
	for _, resource := range []bufferResource{
		bufferColors,
		bufferInitialColors,
		bufferPlacemask,
		bufferHeatmap,
		bufferVirginmap,
	} {
		resource := resource
		mux.HandleFunc("/"+string(resource), func(w http.ResponseWriter, r *http.Request) {
			site.count(r.URL.Path)
			if hold := site.holdBuffersChan(); hold != nil {
				<-hold
			}
			site.mu.Lock()
			buffer := site.buffers[resource]
			site.mu.Unlock()
			w.Write(buffer)
		})
	}
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		site.upgraded <- struct{}{}
		if stream := site.streamFunc(); stream != nil {
			stream(ws)
		}
	})

	site.server = httptest.NewServer(mux)
	return site
}

func (self *testSite) count(path string) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.requestCounts[path] += 1
}

func (self *testSite) requestCount(path string) int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.requestCounts[path]
}

func (self *testSite) holdInfoChan() chan struct{} {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.holdInfo
}

func (self *testSite) holdBuffersChan() chan struct{} {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.holdBuffers
}

func (self *testSite) setHoldInfo(hold chan struct{}) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.holdInfo = hold
}

func (self *testSite) setHoldBuffers(hold chan struct{}) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.holdBuffers = hold
}

func (self *testSite) streamFunc() func(ws *websocket.Conn) {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.stream
}

func (self *testSite) setStream(stream func(ws *websocket.Conn)) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.stream = stream
}

func (self *testSite) setBuffer(resource bufferResource, buffer []byte) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.buffers[resource] = buffer
}

func (self *testSite) setStatsJson(statsJson string) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.statsJson = statsJson
}

func (self *testSite) close() {
	self.server.Close()
}

func (self *testSite) newClient(t *testing.T, eventHandler EventHandler) *Client {
	siteBase, err := url.Parse(self.server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if eventHandler == nil {
		eventHandler = &NoopEventHandler{}
	}
	client, err := NewClientWithDefaults(context.Background(), siteBase, eventHandler)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

// recordingHandler captures notifications for assertions.
type recordingHandler struct {
	NoopEventHandler

	mu sync.Mutex

	readyCount      int
	disconnectCount int
	boardUpdates    [][]Pixel
	userCounts      []int
	alerts          []string
	acknowledges    []AcknowledgeType
	userUpdates     []UserUpdate
	unknowns        []string

	// optional, runs inside HandleReady
	onReady func(client *Client)
}

func (self *recordingHandler) HandleReady(client *Client) {
	self.mu.Lock()
	self.readyCount += 1
	onReady := self.onReady
	self.mu.Unlock()
	if onReady != nil {
		onReady(client)
	}
}

func (self *recordingHandler) HandleDisconnect(client *Client) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.disconnectCount += 1
}

func (self *recordingHandler) HandleBoardUpdate(client *Client, pixels []Pixel) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.boardUpdates = append(self.boardUpdates, pixels)
}

func (self *recordingHandler) HandleUserCount(client *Client, count int) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.userCounts = append(self.userCounts, count)
}

func (self *recordingHandler) HandleAlert(client *Client, sender string, message string) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.alerts = append(self.alerts, sender+": "+message)
}

func (self *recordingHandler) HandleAcknowledge(client *Client, acknowledgeFor AcknowledgeType, x int, y int) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.acknowledges = append(self.acknowledges, acknowledgeFor)
}

func (self *recordingHandler) HandleChatUserUpdate(client *Client, who string, updates UserUpdate) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.userUpdates = append(self.userUpdates, updates)
}

func (self *recordingHandler) HandleUnknown(client *Client, text string) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.unknowns = append(self.unknowns, text)
}

func (self *recordingHandler) snapshotUnknowns() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]string{}, self.unknowns...)
}
