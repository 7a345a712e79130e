// Package remote drives a rig daemon over a websocket, implementing the
// rig contract with one synchronous CMD/RES exchange per call. The drive
// core is single-threaded, so there is never more than one command in
// flight.
package remote

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/gorilla/websocket"

	"tunneler/internal/protocol"
	"tunneler/internal/rig"
)

type Rig struct {
	conn    *websocket.Conn
	log     *log.Logger
	seq     uint64
	welcome protocol.WelcomeMsg
	linkErr error
}

func Dial(url, agentName string, logger *log.Logger) (*Rig, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", url, err)
	}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       agentName,
	}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("remote: send HELLO: %w", err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("remote: read WELCOME: %w", err)
	}
	var w protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &w); err != nil || w.Type != protocol.TypeWelcome {
		conn.Close()
		return nil, fmt.Errorf("remote: bad WELCOME: %v", err)
	}
	if logger != nil {
		logger.Printf("connected to rig %q max_energy=%d", w.RigID, w.RigParams.MaxEnergy)
	}
	return &Rig{conn: conn, log: logger, welcome: w}, nil
}

func (r *Rig) Close() error { return r.conn.Close() }

func (r *Rig) Params() protocol.RigParams { return r.welcome.RigParams }

// call performs one CMD/RES exchange. A transport failure marks the rig
// broken: every later call short-circuits to its zero result, and the
// fault is visible through Fault so retry loops abort instead of
// spinning on permanent failures.
func (r *Rig) call(op, dir string) (protocol.ResMsg, bool) {
	if r.linkErr != nil {
		return protocol.ResMsg{}, false
	}
	r.seq++
	cmd := protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		Seq:             r.seq,
		Op:              op,
		Dir:             dir,
	}
	if err := r.conn.WriteJSON(cmd); err != nil {
		r.fail("write", err)
		return protocol.ResMsg{}, false
	}
	for {
		_, msg, err := r.conn.ReadMessage()
		if err != nil {
			r.fail("read", err)
			return protocol.ResMsg{}, false
		}
		var res protocol.ResMsg
		if err := json.Unmarshal(msg, &res); err != nil || res.Type != protocol.TypeRes {
			continue
		}
		if res.Seq != r.seq {
			continue
		}
		return res, true
	}
}

func (r *Rig) fail(what string, err error) {
	r.linkErr = fmt.Errorf("remote: rig link lost (%s): %w", what, err)
	if r.log != nil {
		r.log.Printf("rig link lost (%s): %v", what, err)
	}
}

// Fault reports the permanent link error, nil while the link is up.
func (r *Rig) Fault() error { return r.linkErr }

func (r *Rig) Detect(d rig.Dir) rig.Scan {
	res, ok := r.call(protocol.OpDetect, d.String())
	if !ok {
		return rig.ScanEmpty
	}
	if s, ok := protocol.ParseScan(res.Scan); ok {
		return s
	}
	return rig.ScanEmpty
}

func (r *Rig) Classify(d rig.Dir) (rig.Material, bool) {
	res, ok := r.call(protocol.OpClassify, d.String())
	if !ok || !res.OK {
		return rig.Material{}, false
	}
	return rig.Material{Name: res.Material}, true
}

func (r *Rig) Clear(d rig.Dir) (bool, error) {
	res, ok := r.call(protocol.OpClear, d.String())
	if !ok {
		if r.linkErr != nil {
			return false, r.linkErr
		}
		return false, fmt.Errorf("remote: rig link down")
	}
	if res.Code != "" {
		return false, fmt.Errorf("remote: clear %s: %s", d, res.Code)
	}
	return res.OK, nil
}

func (r *Rig) Translate(d rig.Dir) bool {
	res, _ := r.call(protocol.OpTranslate, d.String())
	return res.OK
}

func (r *Rig) Rotate(t rig.Turn) bool {
	res, _ := r.call(protocol.OpRotate, t.String())
	return res.OK
}

func (r *Rig) status() protocol.StatusBody {
	res, ok := r.call(protocol.OpStatus, "")
	if !ok || res.Status == nil {
		return protocol.StatusBody{}
	}
	return *res.Status
}

func (r *Rig) EnergyLevel() int { return r.status().Energy }

func (r *Rig) MaxEnergy() int {
	if n := r.welcome.RigParams.MaxEnergy; n > 0 {
		return n
	}
	return r.status().MaxEnergy
}

func (r *Rig) ToolUsable() bool { return r.status().ToolOK }

func (r *Rig) ConsumableStock() int { return r.status().Markers }

func (r *Rig) FreeCargoSlots() int { return r.status().CargoFree }

func (r *Rig) PlaceMarker() bool {
	res, _ := r.call(protocol.OpMarker, "")
	return res.OK
}

// Depot performs depot servicing on the daemon side.
type Depot struct {
	R *Rig
}

func (d Depot) Service(rig.Rig) error {
	res, ok := d.R.call(protocol.OpService, "")
	if !ok {
		if d.R.linkErr != nil {
			return d.R.linkErr
		}
		return fmt.Errorf("remote: rig link down")
	}
	if res.Code != "" {
		return fmt.Errorf("remote: service: %s", res.Code)
	}
	return nil
}
