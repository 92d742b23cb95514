package controller

import (
	"sync"
)

// Registry tracks controllers by port. The rest of the system resolves
// "the active controller" through FirstOpen; multi-controller
// arbitration is deliberately not implemented.
type Registry struct {
	mx          sync.Mutex
	controllers map[string]Controller
	order       []string
}

func NewRegistry() *Registry {
	return &Registry{controllers: make(map[string]Controller)}
}

func (r *Registry) Register(c Controller) {
	r.mx.Lock()
	defer r.mx.Unlock()
	port := c.Port()
	if _, ok := r.controllers[port]; !ok {
		r.order = append(r.order, port)
	}
	r.controllers[port] = c
}

func (r *Registry) Unregister(port string) {
	r.mx.Lock()
	defer r.mx.Unlock()
	if _, ok := r.controllers[port]; !ok {
		return
	}
	delete(r.controllers, port)
	for i, p := range r.order {
		if p == port {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) GetController(port string) (Controller, bool) {
	r.mx.Lock()
	defer r.mx.Unlock()
	c, ok := r.controllers[port]
	return c, ok
}

// ListOpenControllers returns open controllers in registration order.
func (r *Registry) ListOpenControllers() []Controller {
	r.mx.Lock()
	defer r.mx.Unlock()
	var res []Controller
	for _, port := range r.order {
		if c := r.controllers[port]; c != nil && c.IsOpen() {
			res = append(res, c)
		}
	}
	return res
}

// FirstOpen returns the first open controller, if any.
func (r *Registry) FirstOpen() (Controller, bool) {
	open := r.ListOpenControllers()
	if len(open) == 0 {
		return nil, false
	}
	return open[0], true
}
