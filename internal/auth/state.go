package auth

// SessionStatus is the state machine of an auth connection.
type SessionStatus int

const (
	StatusConnected     SessionStatus = iota // TCP connected, nothing proven yet
	StatusPatching                           // outdated client offered a patch
	StatusAuthenticated                      // logon or reconnect proof accepted
)

func (s SessionStatus) String() string {
	switch s {
	case StatusConnected:
		return "CONNECTED"
	case StatusPatching:
		return "PATCHING"
	case StatusAuthenticated:
		return "AUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

// statusMask is a set of statuses a command is allowed in.
type statusMask uint8

func allow(statuses ...SessionStatus) statusMask {
	var m statusMask
	for _, s := range statuses {
		m |= 1 << s
	}
	return m
}

func (m statusMask) has(s SessionStatus) bool {
	return m&(1<<s) != 0
}
