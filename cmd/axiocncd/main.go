package main

import (
	"flag"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/tarm/serial"

	"github.com/rsteckler/axiocnc/action"
	"github.com/rsteckler/axiocnc/controller"
	"github.com/rsteckler/axiocnc/controller/grbl"
	"github.com/rsteckler/axiocnc/eventloop"
	"github.com/rsteckler/axiocnc/input"
	"github.com/rsteckler/axiocnc/jog"
	"github.com/rsteckler/axiocnc/settings"
	"github.com/rsteckler/axiocnc/status"
)

func main() {
	cfg := loadConfig()

	addr := flag.String("addr", cfg.Addr, "Address to bind the server to.")
	port := flag.String("port", cfg.SerialPort, "Serial port of the CNC controller.")
	baud := flag.Int("baud", cfg.BaudRate, "Serial baud rate.")
	settingsFile := flag.String("settings", cfg.SettingsFile, "Settings file path.")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error).")
	flag.Parse()

	log := logrus.New()
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	}

	store := settings.NewStore(*settingsFile, log.WithField("component", "settings"))
	registry := controller.NewRegistry()
	statuses := status.NewManager(log.WithField("component", "status"))
	aggregator := input.NewAggregator(store, log.WithField("component", "input"))

	loop := eventloop.New(eventloop.RealClock())
	loop.Start()
	defer loop.Stop()

	jogCtl := jog.NewController(loop.Clock(), registry, aggregator.Config, loop.Do, log.WithField("component", "jog"))
	dispatcher := action.NewDispatcher(registry, statuses, log.WithField("component", "action"))

	// raw frames -> aggregator -> mapper -> {dispatcher | jog}, all
	// serialized on the loop
	aggregator.OnActions(func(actions []input.MappedAction, sourceID string) {
		loop.Do(func() {
			jogCtl.HandleActions(actions, sourceID)
			for _, act := range actions {
				if btn, ok := act.(input.ButtonAction); ok && !input.IsJogAction(btn.Action) {
					dispatcher.Dispatch(btn)
				}
			}
		})
	})

	if *port != "" {
		conn, err := serial.OpenPort(&serial.Config{Name: *port, Baud: *baud})
		if err != nil {
			log.WithError(err).Fatal("open serial port")
		}
		grblCtl := grbl.New(*port, conn, log.WithField("component", "grbl"))
		registry.Register(grblCtl)

		grblCtl.Subscribe(func(ev controller.Event) {
			loop.Do(func() {
				jogCtl.HandleControllerEvent(ev)
				switch e := ev.(type) {
				case controller.EventOpened:
					statuses.HandleOpen(e.Port, "grbl")
				case controller.EventClosed:
					statuses.HandleClose(e.Port)
				case controller.EventState:
					statuses.HandleControllerState(grblCtl.Port(), e.Status)
				case controller.EventReset:
					statuses.HandleReset(grblCtl.Port())
				}
			})
		})
		grblCtl.Open()
		defer grblCtl.Close()
	}

	api := newAPI(apiDeps{
		loop:       loop,
		aggregator: aggregator,
		dispatcher: dispatcher,
		statuses:   statuses,
		registry:   registry,
		store:      store,
		log:        log.WithField("component", "api"),
	})
	dispatcher.OnFlash(api.Flash)
	jogCtl.OnFlash(api.Flash)

	log.WithField("addr", *addr).Info("axiocncd listening")
	err := http.ListenAndServe(*addr, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		api.ServeHTTP(w, req)
	}))
	if err != nil {
		log.Fatal(err)
	}
}
