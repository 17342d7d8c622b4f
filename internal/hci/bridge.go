// ABOUTME: WebSocket bridge to a remote HCI controller
// ABOUTME: Carries H4-framed packets as binary messages and routes them to a handler
package hci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gobwas/pool/pbytes"
	"github.com/gorilla/websocket"
)

// maxPacket bounds one H4 packet: indicator, ISO header and a full SDU
const maxPacket = 1 + 4 + 4095

// Config holds bridge configuration
type Config struct {
	Addr        string
	Path        string
	DialTimeout time.Duration
}

// Handler receives everything the controller sends. Calls come from the
// bridge's reader goroutine.
type Handler interface {
	HandleEvent(ev Event)
	HandleISO(pkt *ISOData)
}

// TransportError reports that the bridge connection failed underneath the
// controller
type TransportError struct {
	Err error
}

func (TransportError) eventName() string { return "transport error" }

// ISOData is one ISO data packet without its H4 indicator. The buffer is
// pooled and must be released once the packet is processed.
type ISOData struct {
	Data []byte
	buf  []byte
}

// Release returns the packet buffer to the pool
func (p *ISOData) Release() {
	if p.buf != nil {
		pbytes.Put(p.buf)
		p.buf = nil
		p.Data = nil
	}
}

// Bridge is a Controller reached over a websocket
type Bridge struct {
	config  Config
	handler Handler

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBridge creates an unconnected bridge
func NewBridge(config Config, handler Handler) *Bridge {
	if config.Path == "" {
		config.Path = "/hci"
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		config:  config,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Connect dials the bridge, starts the reader and resets the controller.
// The reset's completion is delivered as ControllerReady.
func (b *Bridge) Connect() error {
	u := url.URL{Scheme: "ws", Host: b.config.Addr, Path: b.config.Path}
	log.Printf("Connecting to controller bridge at %s", u.String())

	dialer := websocket.Dialer{HandshakeTimeout: b.config.DialTimeout}
	conn, _, err := dialer.DialContext(b.ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.connected = true
	b.mu.Unlock()

	go b.readPackets()

	if err := b.Send(Reset()); err != nil {
		b.Close()
		return fmt.Errorf("controller reset failed: %w", err)
	}
	return nil
}

// Send writes one command packet
func (b *Bridge) Send(cmd Command) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.connected {
		return ErrNotConnected
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteMessage(websocket.BinaryMessage, cmd.Packet()); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	return nil
}

// PowerOff resets the controller and closes the connection
func (b *Bridge) PowerOff() error {
	err := b.Send(Reset())
	if errors.Is(err, ErrNotConnected) {
		err = nil
	}
	b.Close()
	return err
}

// readPackets reads and routes incoming packets
func (b *Bridge) readPackets() {
	defer close(b.done)
	defer b.Close()

	for {
		messageType, r, err := b.conn.NextReader()
		if err != nil {
			if b.IsConnected() {
				log.Printf("Controller bridge read error: %v", err)
				b.handler.HandleEvent(TransportError{Err: err})
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		buf := pbytes.GetLen(maxPacket + 1)
		n, err := io.ReadFull(r, buf)
		switch {
		case err == nil:
			log.Printf("Dropping oversized controller packet")
			pbytes.Put(buf)
			continue
		case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		default:
			pbytes.Put(buf)
			if b.IsConnected() {
				log.Printf("Controller bridge read error: %v", err)
				b.handler.HandleEvent(TransportError{Err: err})
			}
			return
		}

		b.dispatch(buf, n)
	}
}

// dispatch routes one packet; it takes ownership of buf
func (b *Bridge) dispatch(buf []byte, n int) {
	if n == 0 {
		pbytes.Put(buf)
		return
	}

	switch buf[0] {
	case PacketEvent:
		events, err := ParseEvent(buf[1:n])
		pbytes.Put(buf)
		if err != nil {
			log.Printf("Failed to parse controller event: %v", err)
			return
		}
		for _, ev := range events {
			b.handler.HandleEvent(ev)
		}

	case PacketISO:
		b.handler.HandleISO(&ISOData{Data: buf[1:n], buf: buf})

	default:
		log.Printf("Ignoring controller packet type 0x%02x", buf[0])
		pbytes.Put(buf)
	}
}

// Close closes the connection
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		b.connected = false
		b.cancel()
		b.conn.Close()
		log.Printf("Controller bridge closed")
	}
}

// Done is closed once the reader has stopped
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// IsConnected returns connection status
func (b *Bridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}
