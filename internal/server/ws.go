package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"

	"github.com/ayusman/facerecorder/internal/detector"
	"github.com/ayusman/facerecorder/internal/render"
)

const (
	writeTimeout  = 5 * time.Second
	clientBacklog = 4
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LandmarksHandler pushes every tick's detections to WebSocket clients.
// Messages are JSON text frames, or CBOR binary frames with ?format=cbor.
type LandmarksHandler struct {
	loop *render.Loop
}

// NewLandmarksHandler creates a new LandmarksHandler fed by loop.
func NewLandmarksHandler(loop *render.Loop) *LandmarksHandler {
	return &LandmarksHandler{loop: loop}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	useCBOR := r.URL.Query().Get("format") == "cbor"

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	results := make(chan render.Result, clientBacklog)
	cancel := h.loop.Subscribe(func(res render.Result) {
		select {
		case results <- res:
		default:
		}
	})
	defer cancel()

	// Reads detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case res := <-results:
			msgType, data, err := encodeResult(res, useCBOR)
			if err != nil {
				log.Printf("encode landmarks: %v", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	}
}

func encodeResult(res render.Result, useCBOR bool) (int, []byte, error) {
	if res.Faces == nil {
		res.Faces = []detector.Face{}
	}
	if useCBOR {
		data, err := cbor.Marshal(res)
		return websocket.BinaryMessage, data, err
	}
	data, err := json.Marshal(res)
	return websocket.TextMessage, data, err
}
