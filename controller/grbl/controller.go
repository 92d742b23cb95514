package grbl

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rsteckler/axiocnc/controller"
)

// Realtime command bytes. These bypass the line buffer entirely.
const (
	charStatusReport byte = '?'
	charCycleStart   byte = '~'
	charFeedHold     byte = '!'
	charReset        byte = 0x18
	charJogCancel    byte = 0x85
)

const statusPollInterval = 500 * time.Millisecond

// ErrClosed is returned from writes after the connection is gone.
var ErrClosed = errors.New("grbl: connection closed")

// Controller speaks the Grbl line protocol over an io.ReadWriter
// (typically a serial port) and emits typed controller events.
type Controller struct {
	port string
	rw   io.ReadWriter
	log  *logrus.Entry

	mx    sync.Mutex
	open  bool
	last  controller.State
	subs  map[int]func(controller.Event)
	subID int

	wMx sync.Mutex

	closeCh   chan struct{}
	closeOnce sync.Once
}

var _ controller.Controller = &Controller{}

func New(port string, rw io.ReadWriter, log *logrus.Entry) *Controller {
	return &Controller{
		port:    port,
		rw:      rw,
		log:     log.WithField("port", port),
		subs:    make(map[int]func(controller.Event)),
		closeCh: make(chan struct{}),
	}
}

// Open starts the read and status-poll loops and announces the port.
func (c *Controller) Open() {
	c.mx.Lock()
	c.open = true
	c.mx.Unlock()

	go c.readLoop()
	go c.pollLoop()

	c.emit(controller.EventOpened{Port: c.port})
	if err := c.Command(controller.CmdParserState); err != nil {
		c.log.WithError(err).Warn("initial parser state query failed")
	}
}

func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.mx.Lock()
		c.open = false
		c.mx.Unlock()
		c.emit(controller.EventClosed{Port: c.port})
	})
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Controller) Port() string { return c.port }

func (c *Controller) IsOpen() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.open
}

func (c *Controller) State() controller.State {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.last
}

// Writeln sends one line to the device. The caller owns queue
// accounting; every accepted line produces exactly one ok/error event.
func (c *Controller) Writeln(line string) error {
	if !c.IsOpen() {
		return ErrClosed
	}
	c.wMx.Lock()
	_, err := c.rw.Write([]byte(line + "\n"))
	c.wMx.Unlock()
	return err
}

func (c *Controller) writeByte(b byte) error {
	if !c.IsOpen() {
		return ErrClosed
	}
	c.wMx.Lock()
	_, err := c.rw.Write([]byte{b})
	c.wMx.Unlock()
	return err
}

func (c *Controller) Command(name string, args ...string) error {
	switch name {
	case controller.CmdHoming:
		return c.Writeln("$H")
	case controller.CmdUnlock:
		return c.Writeln("$X")
	case controller.CmdParserState:
		return c.Writeln("$G")
	case controller.CmdReset:
		return c.writeByte(charReset)
	case controller.CmdCycleStart:
		return c.writeByte(charCycleStart)
	case controller.CmdFeedHold:
		return c.writeByte(charFeedHold)
	case controller.CmdJogCancel:
		return c.writeByte(charJogCancel)
	case controller.CmdStatusReport:
		return c.writeByte(charStatusReport)
	}
	return errors.New("grbl: unknown command: " + name)
}

func (c *Controller) Subscribe(fn func(controller.Event)) func() {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.subID++
	id := c.subID
	c.subs[id] = fn
	return func() {
		c.mx.Lock()
		defer c.mx.Unlock()
		delete(c.subs, id)
	}
}

func (c *Controller) emit(ev controller.Event) {
	c.mx.Lock()
	fns := make([]func(controller.Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mx.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Controller) pollLoop() {
	t := time.NewTicker(statusPollInterval)
	defer t.Stop()
	for {
		select {
		case <-c.closeCh:
			return
		case <-t.C:
			if err := c.writeByte(charStatusReport); err != nil {
				return
			}
		}
	}
}

func (c *Controller) readLoop() {
	scan := bufio.NewScanner(c.rw)
	for scan.Scan() {
		select {
		case <-c.closeCh:
			return
		default:
		}
		c.handleLine(strings.TrimSpace(scan.Text()))
	}
	if err := scan.Err(); err != nil {
		c.log.WithError(err).Error("read from port")
	}
	c.Close()
}

func (c *Controller) handleLine(line string) {
	switch {
	case line == "":
	case line == "ok":
		c.emit(controller.EventAck{})
	case strings.HasPrefix(line, "error:"):
		c.emit(parseErrorLine(line))
	case strings.HasPrefix(line, "ALARM:"):
		c.emit(parseAlarmLine(line))
	case line[0] == '<':
		stat, err := parseStatus(c.State().Status, line)
		if err != nil {
			c.log.WithError(err).Error("parse status")
			return
		}
		c.mx.Lock()
		c.last.Status = *stat
		c.mx.Unlock()
		c.emit(controller.EventState{Status: *stat})
	case strings.HasPrefix(line, "[GC:"):
		ps, err := parseParserState(line)
		if err != nil {
			c.log.WithError(err).Error("parse parser state")
			return
		}
		c.mx.Lock()
		c.last.Parser = *ps
		c.mx.Unlock()
		c.emit(controller.EventParserState{Parser: *ps})
	case strings.HasPrefix(line, "Grbl"):
		c.emit(controller.EventReset{})
	}
}
