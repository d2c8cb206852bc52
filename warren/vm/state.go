package vm

import "strings"

// DomainState is a libvirt domain lifecycle state as the node agent
// reports it.
type DomainState string

const (
	StateNoState   DomainState = "No state"
	StateRunning   DomainState = "Running"
	StateBlocked   DomainState = "Blocked"
	StatePaused    DomainState = "Paused"
	StateShutdown  DomainState = "Shutdown"
	StateShutoff   DomainState = "Shutoff"
	StateCrashed   DomainState = "Crashed"
	StateSuspended DomainState = "Suspended"
	StateUnknown   DomainState = "Unknown"
)

// DomainStateFromCode maps a libvirt domain state code to its reported
// name. Codes outside the libvirt enum map to StateUnknown.
func DomainStateFromCode(code uint32) DomainState {
	switch code {
	case 0:
		return StateNoState
	case 1:
		return StateRunning
	case 2:
		return StateBlocked
	case 3:
		return StatePaused
	case 4:
		return StateShutdown
	case 5:
		return StateShutoff
	case 6:
		return StateCrashed
	case 7:
		return StateSuspended
	default:
		return StateUnknown
	}
}

func (s DomainState) String() string {
	return string(s)
}

// Stored is the lowercase form the inventory keeps in the database.
func (s DomainState) Stored() string {
	return strings.ToLower(string(s))
}
