// Package viewer serves delivered frames to browsers as a stream of JPEG
// images over a websocket.
package viewer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/lanikai/alohaplay/internal/logging"
)

var log = logging.DefaultLogger.WithTag("viewer")

const (
	// Frames queued per client before the oldest is dropped.
	clientBacklog = 2

	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 << 10,
}

type Config struct {
	// JPEG quality, 1-100. Zero selects jpeg.DefaultQuality.
	Quality int

	// Maximum simultaneous connections accepted by Serve. Zero is unlimited.
	MaxConns int

	// Gatherer for /metrics. Nil disables the endpoint.
	Metrics prometheus.Gatherer
}

type Viewer struct {
	cfg   Config
	bcast *Broadcaster
	mux   *http.ServeMux
}

func New(cfg Config) *Viewer {
	if cfg.Quality == 0 {
		cfg.Quality = jpeg.DefaultQuality
	}
	v := &Viewer{
		cfg:   cfg,
		bcast: NewBroadcaster(),
		mux:   http.NewServeMux(),
	}
	v.mux.HandleFunc("/", v.handleIndex)
	v.mux.HandleFunc("/ws", v.handleWebsocket)
	if cfg.Metrics != nil {
		v.mux.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{}))
	}
	return v
}

// Publish encodes img and queues it for every connected client. It runs on
// the delivery path, so encoding is skipped while nobody is watching.
func (v *Viewer) Publish(img *image.RGBA) {
	if v.bcast.Len() == 0 {
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: v.cfg.Quality}); err != nil {
		log.Warn("Failed to encode frame: %v", err)
		return
	}
	v.bcast.Write(buf.Bytes())
}

func (v *Viewer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v.mux.ServeHTTP(w, r)
}

// Serve accepts connections on l until ctx is done.
func (v *Viewer) Serve(ctx context.Context, l net.Listener) error {
	if v.cfg.MaxConns > 0 {
		l = netutil.LimitListener(l, v.cfg.MaxConns)
	}
	server := &http.Server{Handler: v}

	go func() {
		<-ctx.Done()
		server.Close()
		v.bcast.Close()
	}()

	log.Info("Viewer listening on http://%s/", l.Addr())
	if err := server.Serve(l); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (v *Viewer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (v *Viewer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer ws.Close()

	frames := v.bcast.Subscribe(clientBacklog)
	defer v.bcast.Unsubscribe(frames)

	// Detect the client going away. Incoming messages are ignored.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Debug("Client %s connected", r.RemoteAddr)
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeTimeout))
				return
			}
			ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Debug("Client %s: %v", r.RemoteAddr, err)
				return
			}
		case <-gone:
			log.Debug("Client %s disconnected", r.RemoteAddr)
			return
		}
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>alohaplay</title></head>
<body style="margin:0;background:#000">
<img id="frame" style="display:block;margin:auto">
<script>
const img = document.getElementById("frame");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.binaryType = "blob";
ws.onmessage = (ev) => {
  const url = URL.createObjectURL(ev.data);
  img.onload = () => URL.revokeObjectURL(url);
  img.src = url;
};
</script>
</body>
</html>
`
