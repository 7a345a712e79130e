package protocol

import "tunneler/internal/rig"

// Wire names for directions and turns.
const (
	DirForward = "FORWARD"
	DirBack    = "BACK"
	DirUp      = "UP"
	DirDown    = "DOWN"
	DirLeft    = "LEFT"
	DirRight   = "RIGHT"
)

func ParseDir(s string) (rig.Dir, bool) {
	switch s {
	case DirForward:
		return rig.Forward, true
	case DirBack:
		return rig.Back, true
	case DirUp:
		return rig.Up, true
	case DirDown:
		return rig.Down, true
	case DirLeft:
		return rig.Left, true
	case DirRight:
		return rig.Right, true
	}
	return 0, false
}

func ParseTurn(s string) (rig.Turn, bool) {
	switch s {
	case DirLeft:
		return rig.TurnLeft, true
	case DirRight:
		return rig.TurnRight, true
	}
	return 0, false
}

func ParseScan(s string) (rig.Scan, bool) {
	switch s {
	case "EMPTY":
		return rig.ScanEmpty, true
	case "PASSABLE":
		return rig.ScanPassable, true
	case "SOLID":
		return rig.ScanSolid, true
	}
	return 0, false
}
