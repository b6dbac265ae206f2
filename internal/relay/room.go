package relay

import "strings"

// Room pairs at most two clients under a shared code. The first to join is
// the host.
type Room struct {
	Code  string
	host  *Client
	guest *Client

	hostMoved  bool
	guestMoved bool
	bothReady  bool
}

// NormalizeCode trims and upper-cases a room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *Room) full() bool {
	return r.host != nil && r.guest != nil
}

func (r *Room) other(c *Client) *Client {
	switch c {
	case r.host:
		return r.guest
	case r.guest:
		return r.host
	default:
		return nil
	}
}

func (r *Room) isHost(c *Client) bool {
	return r.host == c
}

// markMoved latches c's moved flag and reports whether this call made both
// occupants ready for the first time.
func (r *Room) markMoved(c *Client) bool {
	switch c {
	case r.host:
		r.hostMoved = true
	case r.guest:
		r.guestMoved = true
	}
	if r.bothReady || !r.hostMoved || !r.guestMoved {
		return false
	}
	r.bothReady = true
	return true
}

func (r *Room) occupants() int {
	n := 0
	if r.host != nil {
		n++
	}
	if r.guest != nil {
		n++
	}
	return n
}
