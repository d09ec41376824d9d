package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"proctored-quiz-service/internal/app"
	"proctored-quiz-service/internal/domain"
)

// CameraFeed receives heartbeats from the browser's video stream.
type CameraFeed interface {
	Heartbeat(username string)
	Drop(username string)
	IsLive(username string) bool
}

// CameraHandler streams camera heartbeats into the quiz controller and pushes the
// remaining time back. When the clock runs out it submits the session automatically.
type CameraHandler struct {
	service  *app.QuizService
	camera   CameraFeed
	interval time.Duration
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewCameraHandler(service *app.QuizService, camera CameraFeed, interval time.Duration, log logrus.FieldLogger) *CameraHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &CameraHandler{
		service:  service,
		camera:   camera,
		interval: interval,
		log:      log,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type statusPayload struct {
	RemainingSeconds int64 `json:"remainingSeconds"`
	CameraLive       bool  `json:"cameraLive"`
	CameraGated      bool  `json:"cameraGated"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS expects an authenticated student with an open quiz session.
func (h *CameraHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	username := claims.Username
	if _, err := h.service.RemainingTime(r.Context(), username); err != nil {
		writeError(w, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()
	defer h.camera.Drop(username)

	log := h.log.WithField("username", username)
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				msg, done := h.tick(r, username)
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
				if done {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
						time.Now().Add(time.Second))
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "heartbeat", "frame":
			h.camera.Heartbeat(username)
			h.service.ObserveCamera(r.Context(), username, true)
			send <- h.status(r, username)
		case "offline":
			h.camera.Drop(username)
			send <- h.status(r, username)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

// tick reports the remaining time and auto-submits an expired session. done is true once
// there is no open session left to watch.
func (h *CameraHandler) tick(r *http.Request, username string) (outboundMessage[any], bool) {
	left, err := h.service.RemainingTime(r.Context(), username)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return outboundMessage[any]{Type: "closed", Payload: errorPayload{Message: err.Error()}}, true
	}
	if err != nil {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}, false
	}
	if left > 0 {
		return h.status(r, username), false
	}

	score, err := h.service.TrySubmit(r.Context(), username, true)
	if err != nil {
		if errors.Is(err, domain.ErrCameraRequired) {
			// the session stays open until the camera is seen
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}, false
		}
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}, true
	}
	return outboundMessage[any]{Type: "submitted", Payload: scoreResponse{
		Score:          score.Score,
		Total:          score.Total,
		ElapsedSeconds: seconds(score.Elapsed),
	}}, true
}

func (h *CameraHandler) status(r *http.Request, username string) outboundMessage[any] {
	snap, err := h.service.Snapshot(r.Context(), username)
	if err != nil {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
	return outboundMessage[any]{Type: "status", Payload: statusPayload{
		RemainingSeconds: seconds(snap.Remaining),
		CameraLive:       h.camera.IsLive(username),
		CameraGated:      snap.CameraGated,
	}}
}
