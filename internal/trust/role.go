package trust

// Role is the trust level assigned to an acting account.
type Role uint8

const (
	RoleNone Role = iota
	RoleTransferAgent
	RoleExchange
	RoleIssuer
	RoleMaster
)

var roleNames = map[Role]string{
	RoleNone:          "none",
	RoleTransferAgent: "transfer_agent",
	RoleExchange:      "exchange",
	RoleIssuer:        "issuer",
	RoleMaster:        "master",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRole maps a wire name to a Role. Unknown names map to RoleNone
// with ok=false so callers can reject them explicitly.
func ParseRole(name string) (Role, bool) {
	for role, n := range roleNames {
		if n == name {
			return role, true
		}
	}
	return RoleNone, false
}

// rank orders roles for removal authorization: MASTER > ISSUER >
// EXCHANGE/TRANSFER_AGENT. Exchange and transfer agent are peers.
func (r Role) rank() int {
	switch r {
	case RoleMaster:
		return 3
	case RoleIssuer:
		return 2
	case RoleExchange, RoleTransferAgent:
		return 1
	default:
		return 0
	}
}

// Dominates reports whether r may remove an assignment of other.
func (r Role) Dominates(other Role) bool {
	return r.rank() >= other.rank() && r.rank() > 0
}
