// Package protocol defines the JSON wire contract between the tunneler
// agent and a rig daemon. The agent is strictly synchronous: one CMD in
// flight, answered by exactly one RES.
package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeCmd     = "CMD"
	TypeRes     = "RES"
)

// Command ops.
const (
	OpDetect    = "DETECT"
	OpClassify  = "CLASSIFY"
	OpClear     = "CLEAR"
	OpTranslate = "TRANSLATE"
	OpRotate    = "ROTATE"
	OpStatus    = "STATUS"
	OpMarker    = "MARKER"
	OpService   = "SERVICE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
}

type RigParams struct {
	MaxEnergy      int `json:"max_energy"`
	ToolDurability int `json:"tool_durability"`
	Markers        int `json:"markers"`
	CargoSlots     int `json:"cargo_slots"`
}

type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	RigID           string    `json:"rig_id"`
	RigParams       RigParams `json:"rig_params"`
}

// CmdMsg carries one rig operation. Dir is required for DETECT, CLASSIFY,
// CLEAR, TRANSLATE and ROTATE (where it names the turn) and ignored
// elsewhere. Seq must increase by one per command.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Op              string `json:"op"`
	Dir             string `json:"dir,omitempty"`
}

type StatusBody struct {
	Energy    int  `json:"energy"`
	MaxEnergy int  `json:"max_energy"`
	ToolOK    bool `json:"tool_ok"`
	Markers   int  `json:"markers"`
	CargoFree int  `json:"cargo_free"`
}

// ResMsg answers a CmdMsg with the same Seq. OK is the op result
// (moved / removed / placed); Scan and Material carry probe results;
// Status is present on STATUS responses. Code is set on errors.
type ResMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Seq             uint64      `json:"seq"`
	OK              bool        `json:"ok"`
	Scan            string      `json:"scan,omitempty"`
	Material        string      `json:"material,omitempty"`
	Status          *StatusBody `json:"status,omitempty"`
	Code            string      `json:"code,omitempty"`
}
