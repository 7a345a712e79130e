// Package ws exposes a rig to remote agents over a websocket. Commands
// are strictly sequential: one CMD, one RES, enforced by seq numbers.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tunneler/internal/protocol"
	"tunneler/internal/rig"
)

type Server struct {
	rigID string
	r     rig.Rig
	depot rig.Depot
	par   protocol.RigParams
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(rigID string, r rig.Rig, depot rig.Depot, par protocol.RigParams, logger *log.Logger) *Server {
	return &Server{
		rigID: rigID,
		r:     r,
		depot: depot,
		par:   par,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.handshake(conn) {
			return
		}

		var lastSeq uint64
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCmd {
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				s.reply(conn, protocol.ResMsg{Seq: cmd.Seq, Code: protocol.ErrProtoBadRequest})
				continue
			}
			if cmd.ProtocolVersion != protocol.Version {
				s.reply(conn, protocol.ResMsg{Seq: cmd.Seq, Code: protocol.ErrProtoBadRequest})
				continue
			}
			if cmd.Seq != lastSeq+1 {
				s.reply(conn, protocol.ResMsg{Seq: cmd.Seq, Code: protocol.ErrBadSeq})
				continue
			}
			lastSeq = cmd.Seq
			s.reply(conn, s.execute(cmd))
		}
	}
}

func (s *Server) execute(cmd protocol.CmdMsg) (res protocol.ResMsg) {
	// A panicking rig backend must not take the connection down with it.
	defer func() {
		if r := recover(); r != nil {
			if s.log != nil {
				s.log.Printf("op %s panicked: %v", cmd.Op, r)
			}
			res = protocol.ResMsg{Seq: cmd.Seq, Code: protocol.ErrInternal}
		}
	}()
	res = protocol.ResMsg{Seq: cmd.Seq}
	switch cmd.Op {
	case protocol.OpDetect:
		d, ok := protocol.ParseDir(cmd.Dir)
		if !ok {
			res.Code = protocol.ErrBadDir
			return res
		}
		res.OK = true
		res.Scan = s.r.Detect(d).String()

	case protocol.OpClassify:
		d, ok := protocol.ParseDir(cmd.Dir)
		if !ok {
			res.Code = protocol.ErrBadDir
			return res
		}
		mat, found := s.r.Classify(d)
		res.OK = found
		res.Material = mat.Name

	case protocol.OpClear:
		d, ok := protocol.ParseDir(cmd.Dir)
		if !ok {
			res.Code = protocol.ErrBadDir
			return res
		}
		removed, err := s.r.Clear(d)
		if err != nil {
			res.Code = protocol.ErrRigFault
			return res
		}
		res.OK = removed

	case protocol.OpTranslate:
		d, ok := protocol.ParseDir(cmd.Dir)
		if !ok {
			res.Code = protocol.ErrBadDir
			return res
		}
		res.OK = s.r.Translate(d)

	case protocol.OpRotate:
		t, ok := protocol.ParseTurn(cmd.Dir)
		if !ok {
			res.Code = protocol.ErrBadDir
			return res
		}
		res.OK = s.r.Rotate(t)

	case protocol.OpStatus:
		res.OK = true
		res.Status = &protocol.StatusBody{
			Energy:    s.r.EnergyLevel(),
			MaxEnergy: s.r.MaxEnergy(),
			ToolOK:    s.r.ToolUsable(),
			Markers:   s.r.ConsumableStock(),
			CargoFree: s.r.FreeCargoSlots(),
		}

	case protocol.OpMarker:
		res.OK = s.r.PlaceMarker()

	case protocol.OpService:
		if err := s.depot.Service(s.r); err != nil {
			if s.log != nil {
				s.log.Printf("depot service: %v", err)
			}
			res.Code = protocol.ErrRigFault
			return res
		}
		res.OK = true

	default:
		res.Code = protocol.ErrProtoBadRequest
	}
	return res
}

func (s *Server) reply(conn *websocket.Conn, res protocol.ResMsg) {
	res.Type = protocol.TypeRes
	res.ProtocolVersion = protocol.Version
	_ = writeJSON(conn, res)
}

func (s *Server) handshake(conn *websocket.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return false
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return false
	}
	if s.log != nil {
		s.log.Printf("agent %q connected", hello.AgentName)
	}
	return writeJSON(conn, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		RigID:           s.rigID,
		RigParams:       s.par,
	}) == nil
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
