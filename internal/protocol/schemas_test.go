package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tunneler/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, raw string) {
		t.Helper()
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("unmarshal sample: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	cmdSchema := compile("cmd.schema.json")
	resSchema := compile("res.schema.json")

	validate(helloSchema, `{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "agent_name":"tunneler"
	}`)

	validate(welcomeSchema, `{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "rig_id":"rig_1",
	  "rig_params":{"max_energy":100000,"tool_durability":1000,"markers":64,"cargo_slots":16}
	}`)

	validate(cmdSchema, `{
	  "type":"CMD",
	  "protocol_version":"1.0",
	  "seq":7,
	  "op":"CLEAR",
	  "dir":"FORWARD"
	}`)

	validate(resSchema, `{
	  "type":"RES",
	  "protocol_version":"1.0",
	  "seq":7,
	  "ok":true
	}`)

	validate(resSchema, `{
	  "type":"RES",
	  "protocol_version":"1.0",
	  "seq":8,
	  "ok":true,
	  "status":{"energy":5187,"max_energy":100000,"tool_ok":true,"markers":12,"cargo_free":9}
	}`)
}

func TestSchemas_RoundTripMatchesStructs(t *testing.T) {
	// The Go structs must marshal into documents the schemas accept.
	cmd := protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		Seq:             1,
		Op:              protocol.OpDetect,
		Dir:             protocol.DirUp,
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "cmd.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate marshaled CmdMsg: %v", err)
	}
}
