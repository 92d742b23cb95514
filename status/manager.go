package status

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rsteckler/axiocnc/controller"
)

// Manager maintains one Record per device port, reconciling the
// overlapping connection/controller/job event streams into a derived
// status. Every mutation recomputes the derived status and broadcasts
// the record; subscribers must treat repeats idempotently.
type Manager struct {
	mx      sync.Mutex
	records map[string]*Record
	subs    map[int]func(string, Record)
	subID   int

	now func() time.Time
	log *logrus.Entry
}

func NewManager(log *logrus.Entry) *Manager {
	return &Manager{
		records: make(map[string]*Record),
		subs:    make(map[int]func(string, Record)),
		now:     time.Now,
		log:     log,
	}
}

// Subscribe registers fn for every status change broadcast. The
// returned func removes the subscription.
func (m *Manager) Subscribe(fn func(port string, rec Record)) func() {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.subID++
	id := m.subID
	m.subs[id] = fn
	return func() {
		m.mx.Lock()
		defer m.mx.Unlock()
		delete(m.subs, id)
	}
}

// Record returns a snapshot of the record for port.
func (m *Manager) Record(port string) (Record, bool) {
	m.mx.Lock()
	defer m.mx.Unlock()
	r, ok := m.records[port]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Records returns snapshots of every known record.
func (m *Manager) Records() []Record {
	m.mx.Lock()
	defer m.mx.Unlock()
	res := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		res = append(res, *r)
	}
	return res
}

// mutate ensures a record for port, applies fn, recomputes the derived
// status and broadcasts. No batching: one broadcast per mutation.
func (m *Manager) mutate(port string, fn func(*Record)) {
	m.mx.Lock()
	r, ok := m.records[port]
	if !ok {
		r = &Record{Port: port, WorkflowState: WorkflowIdle}
		m.records[port] = r
	}
	fn(r)
	r.DerivedStatus = derive(r)
	r.LastUpdate = m.now()
	snapshot := *r
	fns := make([]func(string, Record), 0, len(m.subs))
	for _, s := range m.subs {
		fns = append(fns, s)
	}
	m.mx.Unlock()

	for _, s := range fns {
		s(port, snapshot)
	}
}

// HandleOpen records a serial port opening. A duplicate open for an
// already-connected port must not disturb established truth: a second
// observer attaching proves nothing about homing or the workflow.
func (m *Manager) HandleOpen(port, controllerType string) {
	m.mutate(port, func(r *Record) {
		r.Connected = true
		r.ControllerType = controllerType
	})
}

// HandleClose resets the connection-dependent fields. The record
// itself survives for the next connect; IsHomed only falls on alarm,
// reset or unlock.
func (m *Manager) HandleClose(port string) {
	m.mutate(port, func(r *Record) {
		r.Connected = false
		r.ActiveState = ""
		r.PinState = ""
		r.HomingInProgress = false
		r.IsJobRunning = false
		r.WorkflowState = WorkflowIdle
	})
}

// HandleControllerState folds a device status report into the record.
// IsHomed is edge-triggered: only the Home->Idle transition sets it,
// so an ordinary Idle report while the homing flag happens to be set
// proves nothing.
func (m *Manager) HandleControllerState(port string, st controller.Status) {
	m.mutate(port, func(r *Record) {
		prev := r.ActiveState

		if prev == controller.StateHome && st.ActiveState == controller.StateIdle {
			r.IsHomed = true
			r.HomingInProgress = false
		}
		if st.ActiveState == controller.StateAlarm && prev != controller.StateAlarm {
			r.IsHomed = false
			r.HomingInProgress = false
		}

		r.ActiveState = st.ActiveState
		r.MPos = st.MPos
		r.WPos = st.WPos
		r.PinState = st.PinState
	})
}

// HandleHomingStarted marks a homing cycle in flight ($H written).
func (m *Manager) HandleHomingStarted(port string) {
	m.mutate(port, func(r *Record) {
		r.HomingInProgress = true
	})
}

// HandleReset invalidates the position reference after a soft reset.
func (m *Manager) HandleReset(port string) {
	m.mutate(port, func(r *Record) {
		r.IsHomed = false
		r.HomingInProgress = false
	})
}

// HandleUnlock invalidates the position reference after $X: the
// machine will move again without ever re-establishing zero.
func (m *Manager) HandleUnlock(port string) {
	m.mutate(port, func(r *Record) {
		r.IsHomed = false
	})
}

// SetWorkflowState records the job sender's workflow transitions.
func (m *Manager) SetWorkflowState(port string, ws WorkflowState) {
	m.mutate(port, func(r *Record) {
		r.WorkflowState = ws
		r.IsJobRunning = ws == WorkflowRunning
	})
}
