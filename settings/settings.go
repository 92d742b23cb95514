package settings

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Store is a JSON-file backed settings tree with dotted-path access.
// All values round-trip through encoding/json, so numbers are float64
// and nested objects are map[string]interface{}.
type Store struct {
	mx       sync.Mutex
	file     string
	data     map[string]interface{}
	watchers map[int]func()
	watchID  int

	log *logrus.Entry
}

// NewStore loads file if it exists. An empty file path keeps the store
// memory-only (used by tests).
func NewStore(file string, log *logrus.Entry) *Store {
	s := &Store{
		file:     file,
		data:     make(map[string]interface{}),
		watchers: make(map[int]func()),
		log:      log,
	}
	if file == "" {
		return s
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Error("read settings file")
		}
		return s
	}
	if err = json.Unmarshal(raw, &s.data); err != nil {
		log.WithError(err).Error("parse settings file")
		s.data = make(map[string]interface{})
	}
	return s
}

// Get returns the value at a dotted path like "joystick.deadzone",
// or def if the path does not resolve.
func (s *Store) Get(path string, def interface{}) interface{} {
	s.mx.Lock()
	defer s.mx.Unlock()
	v, ok := s.lookup(path)
	if !ok {
		return def
	}
	return v
}

func (s *Store) lookup(path string) (interface{}, bool) {
	var cur interface{} = s.data
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (s *Store) GetFloat(path string, def float64) float64 {
	switch v := s.Get(path, def).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func (s *Store) GetBool(path string, def bool) bool {
	if v, ok := s.Get(path, def).(bool); ok {
		return v
	}
	return def
}

func (s *Store) GetString(path string, def string) string {
	if v, ok := s.Get(path, def).(string); ok {
		return v
	}
	return def
}

// GetStringMap returns the object at path, or an empty map.
func (s *Store) GetStringMap(path string) map[string]interface{} {
	if v, ok := s.Get(path, nil).(map[string]interface{}); ok {
		return v
	}
	return map[string]interface{}{}
}

// Set writes val at a dotted path, creating intermediate objects,
// then persists and notifies watchers.
func (s *Store) Set(path string, val interface{}) {
	s.mx.Lock()
	keys := strings.Split(path, ".")
	m := s.data
	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[key] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = val
	s.persistLocked()
	s.mx.Unlock()
	s.notify()
}

// Replace swaps the subtree at path wholesale (used by the settings
// PUT endpoint), then persists and notifies watchers.
func (s *Store) Replace(path string, val map[string]interface{}) {
	// normalize through JSON so watchers always see the same shapes
	raw, err := json.Marshal(val)
	if err != nil {
		s.log.WithError(err).Error("marshal settings")
		return
	}
	var norm map[string]interface{}
	if err = json.Unmarshal(raw, &norm); err != nil {
		s.log.WithError(err).Error("normalize settings")
		return
	}
	s.Set(path, norm)
}

// Watch registers fn to run after every change. The returned func
// removes the watcher.
func (s *Store) Watch(fn func()) func() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.watchID++
	id := s.watchID
	s.watchers[id] = fn
	return func() {
		s.mx.Lock()
		defer s.mx.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Store) notify() {
	s.mx.Lock()
	fns := make([]func(), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mx.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Store) persistLocked() {
	if s.file == "" {
		return
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		s.log.WithError(err).Error("marshal settings")
		return
	}
	if err = os.WriteFile(s.file, raw, 0644); err != nil {
		s.log.WithError(err).Error("write settings file")
	}
}
