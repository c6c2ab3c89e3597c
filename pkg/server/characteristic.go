package server

import (
	"strings"
	"time"

	"github.com/currantlabs/ble"
)

// Characteristic describes one served characteristic; nil handlers leave the
// matching property off.
type Characteristic struct {
	UUID string
	// Read returns the value for a read from addr
	Read func(addr string) ([]byte, error)
	// Write applies a write from addr; an error rejects it
	Write func(addr string, data []byte) error
	// Notify produces the next value pushed to subscribers every Interval
	Notify   func() []byte
	Interval time.Duration
}

func getAddrFromReq(req ble.Request) string {
	return strings.ToUpper(req.Conn().RemoteAddr().String())
}

func (e *Emulator) construct(char Characteristic) *ble.Characteristic {
	c := ble.NewCharacteristic(attUUID(char.UUID))
	if char.Read != nil {
		c.HandleRead(ble.ReadHandlerFunc(e.readHandler(char)))
	}
	if char.Write != nil {
		c.HandleWrite(ble.WriteHandlerFunc(e.writeHandler(char)))
	}
	if char.Notify != nil {
		c.HandleNotify(ble.NotifyHandlerFunc(e.notifyHandler(char)))
	}
	return c
}

func (e *Emulator) readHandler(char Characteristic) func(req ble.Request, rsp ble.ResponseWriter) {
	return func(req ble.Request, rsp ble.ResponseWriter) {
		addr := getAddrFromReq(req)
		data, err := char.Read(addr)
		if err != nil {
			e.logger.WithError(err).WithField("characteristic", char.UUID).Warn("read rejected")
			rsp.SetStatus(ble.ErrReadNotPerm)
			return
		}
		rsp.Write(data)
	}
}

func (e *Emulator) writeHandler(char Characteristic) func(req ble.Request, rsp ble.ResponseWriter) {
	return func(req ble.Request, rsp ble.ResponseWriter) {
		addr := getAddrFromReq(req)
		if err := char.Write(addr, req.Data()); err != nil {
			e.logger.WithError(err).WithField("characteristic", char.UUID).Warn("write rejected")
			rsp.SetStatus(ble.ErrWriteNotPerm)
		}
	}
}

// notifyHandler pushes char.Notify() until the subscriber goes away
func (e *Emulator) notifyHandler(char Characteristic) func(req ble.Request, n ble.Notifier) {
	return func(req ble.Request, n ble.Notifier) {
		log := e.logger.WithField("characteristic", char.UUID).WithField("address", getAddrFromReq(req))
		log.Info("subscribed")
		ticker := time.NewTicker(char.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-n.Context().Done():
				log.Info("unsubscribed")
				return
			case <-ticker.C:
				if _, err := n.Write(char.Notify()); err != nil {
					log.WithError(err).Warn("notify failed")
					return
				}
			}
		}
	}
}
