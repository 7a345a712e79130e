package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadDir   = "E_BAD_DIR"
	ErrBadSeq   = "E_BAD_SEQ"
	ErrRigFault = "E_RIG_FAULT"
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadDir:          {},
	ErrBadSeq:          {},
	ErrRigFault:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
