package input

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rsteckler/axiocnc/settings"
)

// Aggregator tracks the latest frame per input source, enforces the
// configuration gates, runs the mapper and fans mapped actions out.
//
// Sources flagged test-mode still get their actions computed (the
// calibration UI consumes them) but those actions are never forwarded
// to execution consumers.
type Aggregator struct {
	mx       sync.Mutex
	cfg      JoystickConfig
	frames   map[string]RawInputFrame
	held     map[string]map[int]ButtonAction
	testMode map[string]bool

	consumers []func([]MappedAction, string)
	calib     []func([]MappedAction, string)

	store   *settings.Store
	unwatch func()
	log     *logrus.Entry
}

func NewAggregator(store *settings.Store, log *logrus.Entry) *Aggregator {
	a := &Aggregator{
		cfg:      ConfigFromStore(store),
		frames:   make(map[string]RawInputFrame),
		held:     make(map[string]map[int]ButtonAction),
		testMode: make(map[string]bool),
		store:    store,
		log:      log,
	}
	a.unwatch = store.Watch(a.reload)
	return a
}

// Destroy detaches the aggregator from the settings store.
func (a *Aggregator) Destroy() {
	if a.unwatch != nil {
		a.unwatch()
		a.unwatch = nil
	}
}

func (a *Aggregator) reload() {
	cfg := ConfigFromStore(a.store)
	a.mx.Lock()
	a.cfg = cfg
	a.mx.Unlock()
	a.log.Debug("joystick config reloaded")
}

// Config returns the current joystick configuration snapshot.
func (a *Aggregator) Config() JoystickConfig {
	a.mx.Lock()
	defer a.mx.Unlock()
	return a.cfg
}

// OnActions registers an execution consumer for `(actions, sourceId)`.
func (a *Aggregator) OnActions(fn func([]MappedAction, string)) {
	a.mx.Lock()
	defer a.mx.Unlock()
	a.consumers = append(a.consumers, fn)
}

// OnCalibration registers a consumer for test-mode action streams.
func (a *Aggregator) OnCalibration(fn func([]MappedAction, string)) {
	a.mx.Lock()
	defer a.mx.Unlock()
	a.calib = append(a.calib, fn)
}

// SetTestMode flags a source for calibration. While set, its actions
// never reach execution consumers.
func (a *Aggregator) SetTestMode(sourceID string, on bool) {
	a.mx.Lock()
	defer a.mx.Unlock()
	if on {
		a.testMode[sourceID] = true
	} else {
		delete(a.testMode, sourceID)
	}
}

// Frame returns the last stored frame for a source.
func (a *Aggregator) Frame(sourceID string) (RawInputFrame, bool) {
	a.mx.Lock()
	defer a.mx.Unlock()
	f, ok := a.frames[sourceID]
	return f, ok
}

// HandleFrame ingests one raw frame. Disabled feature or a locality
// mismatch drops the frame before any mapping happens.
func (a *Aggregator) HandleFrame(f RawInputFrame) {
	a.mx.Lock()
	cfg := a.cfg
	a.mx.Unlock()

	if !cfg.Enabled {
		return
	}
	if f.Kind == SourceGamepad && f.Locality != cfg.ConnectionLocation {
		return
	}

	a.mx.Lock()
	a.frames[f.SourceID] = f
	a.mx.Unlock()

	var actions []MappedAction
	switch f.Kind {
	case SourceWidget:
		var x, y, z float64
		if len(f.Axes) >= 3 {
			x, y, z = f.Axes[0], f.Axes[1], f.Axes[2]
		}
		actions = append(actions, MapJogControl(x, y, z, cfg))
	case SourceGamepad:
		pressed := MapButtons(f.Axes, f.Buttons, cfg)
		for _, edge := range a.buttonEdges(f.SourceID, pressed) {
			actions = append(actions, edge)
		}
		if an := MapAnalogGamepad(f.Axes, cfg); an != nil {
			actions = append(actions, *an)
		}
	}

	if len(actions) == 0 {
		return
	}
	a.publish(actions, f.SourceID)
}

// Disconnect purges a source. Release edges are synthesized for any
// buttons still held so a vanishing gamepad cannot leave a jog axis
// pinned.
func (a *Aggregator) Disconnect(sourceID string) {
	a.mx.Lock()
	held := a.held[sourceID]
	test := a.testMode[sourceID]
	delete(a.held, sourceID)
	delete(a.frames, sourceID)
	delete(a.testMode, sourceID)
	a.mx.Unlock()

	if len(held) == 0 || test {
		return
	}
	var releases []MappedAction
	for _, act := range held {
		act.Pressed = false
		releases = append(releases, act)
	}
	a.publish(releases, sourceID)
}

// buttonEdges diffs the currently-held set against the previous frame
// and returns press/release transitions only.
func (a *Aggregator) buttonEdges(sourceID string, pressed []ButtonAction) []ButtonAction {
	a.mx.Lock()
	defer a.mx.Unlock()

	prev := a.held[sourceID]
	cur := make(map[int]ButtonAction, len(pressed))
	var edges []ButtonAction

	for _, act := range pressed {
		cur[act.ButtonID] = act
		if _, was := prev[act.ButtonID]; !was {
			edges = append(edges, act)
		}
	}
	for id, act := range prev {
		if _, still := cur[id]; !still {
			act.Pressed = false
			edges = append(edges, act)
		}
	}
	a.held[sourceID] = cur
	return edges
}

func (a *Aggregator) publish(actions []MappedAction, sourceID string) {
	a.mx.Lock()
	test := a.testMode[sourceID]
	var sinks []func([]MappedAction, string)
	if test {
		sinks = append(sinks, a.calib...)
	} else {
		sinks = append(sinks, a.consumers...)
	}
	a.mx.Unlock()

	for _, fn := range sinks {
		fn(actions, sourceID)
	}
}
