package driver

import "fmt"

// FilterGroup is one `protocolN/ipN/portN` configuration entry (spec §6):
// up to 8 of these combine into the dispatcher's BPF-like filter string.
type FilterGroup struct {
	// Protocol is "tcp" or "udp".
	Protocol string
	IP       string
	// Port of 0 omits the port clause.
	Port int
}

// BuildFilter constructs `inbound and (<group> or <group> ...)` from up to
// 8 groups, each `(ip.SrcAddr == <ip> [and ip.DestPort == <port>] and
// (<protocol>.PayloadLength > 0))`, per spec §6, where <protocol> is the
// group's own Protocol value (one clause per group, never both tcp and
// udp). Groups beyond the eighth are ignored; no groups yields "inbound".
func BuildFilter(groups []FilterGroup) string {
	if len(groups) == 0 {
		return "inbound"
	}
	if len(groups) > 8 {
		groups = groups[:8]
	}

	filter := "inbound and ("
	for i, g := range groups {
		if i > 0 {
			filter += " or "
		}
		filter += buildGroup(g)
	}
	filter += ")"
	return filter
}

func buildGroup(g FilterGroup) string {
	payloadClause := fmt.Sprintf("%s.PayloadLength > 0", g.Protocol)
	if g.Port > 0 {
		return fmt.Sprintf("(ip.SrcAddr == %s and ip.DestPort == %d and (%s))", g.IP, g.Port, payloadClause)
	}
	return fmt.Sprintf("(ip.SrcAddr == %s and (%s))", g.IP, payloadClause)
}
