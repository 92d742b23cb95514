package main

import (
	"encoding/json"
	"io"
	stdlog "log"
	"net/http"
	"time"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rsteckler/axiocnc/action"
	"github.com/rsteckler/axiocnc/controller"
	"github.com/rsteckler/axiocnc/eventloop"
	"github.com/rsteckler/axiocnc/input"
	"github.com/rsteckler/axiocnc/settings"
	"github.com/rsteckler/axiocnc/status"
)

type apiDeps struct {
	loop       *eventloop.Loop
	aggregator *input.Aggregator
	dispatcher *action.Dispatcher
	statuses   *status.Manager
	registry   *controller.Registry
	store      *settings.Store
	log        *logrus.Entry
}

type api struct {
	http.Handler
	apiDeps

	sse      *sse.Server
	upgrader websocket.Upgrader
}

func newAPI(deps apiDeps) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		apiDeps: deps,
		sse: sse.NewServer(&sse.Options{
			Logger: stdlog.New(io.Discard, "", 0),
		}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r.HandleFunc("/api/action", a.postAction).Methods("POST")
	r.HandleFunc("/api/jog", a.postJog).Methods("POST")
	r.HandleFunc("/api/settings/joystick", a.getJoystick).Methods("GET")
	r.HandleFunc("/api/settings/joystick", a.putJoystick).Methods("PUT")
	r.HandleFunc("/api/ports", a.getPorts).Methods("GET")
	r.HandleFunc("/ws/gamepad", a.wsGamepad)
	r.PathPrefix("/events/").Handler(a.sse)

	a.statuses.Subscribe(func(port string, rec status.Record) {
		a.send("/events/status", map[string]interface{}{"Port": port, "Record": rec})
	})
	a.aggregator.OnActions(func(actions []input.MappedAction, sourceID string) {
		a.send("/events/actions", actionsMessage(actions, sourceID))
	})
	a.aggregator.OnCalibration(func(actions []input.MappedAction, sourceID string) {
		a.send("/events/calibration", actionsMessage(actions, sourceID))
	})

	return a
}

// Flash pushes the UI flash signal for a rejected action or jog start.
func (a *api) Flash() {
	a.sse.SendMessage("/events/flash", sse.SimpleMessage(`{"flash":true}`))
}

func (a *api) send(channel string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		a.log.WithError(err).Error("marshal event")
		return
	}
	a.sse.SendMessage(channel, sse.SimpleMessage(string(data)))
}

func actionsMessage(actions []input.MappedAction, sourceID string) map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(actions))
	for _, act := range actions {
		switch v := act.(type) {
		case input.ButtonAction:
			out = append(out, map[string]interface{}{
				"type": "button", "action": v.Action, "buttonId": v.ButtonID, "pressed": v.Pressed,
			})
		case input.AnalogAction:
			out = append(out, map[string]interface{}{
				"type": "analog", "x": v.X, "y": v.Y, "z": v.Z,
			})
		}
	}
	return map[string]interface{}{"source": sourceID, "actions": out}
}

func (a *api) postAction(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Action == "" {
		http.Error(w, "invalid action request", http.StatusBadRequest)
		return
	}

	done := make(chan bool, 1)
	a.loop.Do(func() {
		done <- a.dispatcher.Dispatch(input.ButtonAction{Action: body.Action, Pressed: true})
	})
	json.NewEncoder(w).Encode(map[string]bool{"dispatched": <-done})
}

// postJog ingests one on-screen jog widget sample. A neutral sample is
// meaningful (it cancels continuous jogging) and is always forwarded.
func (a *api) postJog(w http.ResponseWriter, req *http.Request) {
	var body struct {
		X, Y, Z float64
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "invalid jog request", http.StatusBadRequest)
		return
	}

	frame := input.RawInputFrame{
		SourceID:  "jog-widget",
		Kind:      input.SourceWidget,
		Locality:  input.LocalityBrowser,
		Axes:      []float64{body.X, body.Y, body.Z},
		Timestamp: time.Now(),
	}
	a.loop.Do(func() { a.aggregator.HandleFrame(frame) })
	w.WriteHeader(http.StatusAccepted)
}

func (a *api) getJoystick(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(a.store.GetStringMap("joystick"))
}

func (a *api) putJoystick(w http.ResponseWriter, req *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "invalid settings", http.StatusBadRequest)
		return
	}
	a.store.Replace("joystick", body)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) getPorts(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(a.statuses.Records())
}

// wsFrame is one message from a gamepad feeder: either a raw sample or
// a test-mode toggle for calibration.
type wsFrame struct {
	Axes     []float64 `json:"axes"`
	Buttons  []bool    `json:"buttons"`
	TestMode *bool     `json:"testMode,omitempty"`
}

// wsGamepad accepts gamepad frames over a websocket. Browser clients
// feed their own gamepads; a server-side HID bridge uses the same
// endpoint with locality=server.
func (a *api) wsGamepad(w http.ResponseWriter, req *http.Request) {
	ws, err := a.upgrader.Upgrade(w, req, nil)
	if err != nil {
		a.log.WithError(err).Error("websocket upgrade")
		return
	}
	defer ws.Close()

	sourceID := req.URL.Query().Get("id")
	if sourceID == "" {
		sourceID = req.RemoteAddr
	}
	locality := input.Locality(req.URL.Query().Get("locality"))
	if locality != input.LocalityServer {
		locality = input.LocalityBrowser
	}

	log := a.log.WithField("source", sourceID)
	log.Info("gamepad connected")
	defer func() {
		log.Info("gamepad disconnected")
		a.loop.Do(func() { a.aggregator.Disconnect(sourceID) })
	}()

	for {
		var frame wsFrame
		if err := ws.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("gamepad read")
			}
			return
		}
		if frame.TestMode != nil {
			on := *frame.TestMode
			a.loop.Do(func() { a.aggregator.SetTestMode(sourceID, on) })
			continue
		}
		raw := input.RawInputFrame{
			SourceID:  sourceID,
			Kind:      input.SourceGamepad,
			Locality:  locality,
			Axes:      frame.Axes,
			Buttons:   frame.Buttons,
			Timestamp: time.Now(),
		}
		a.loop.Do(func() { a.aggregator.HandleFrame(raw) })
	}
}
