package domain

// Capability names an operation class a caller may be allowed to perform.
type Capability string

const (
	CapabilityCatalogWrite Capability = "catalog:write"
	CapabilitySalesRead    Capability = "sales:read"
	CapabilitySalesWrite   Capability = "sales:write"
	CapabilityUsersManage  Capability = "users:manage"
)

var (
	staffCapabilities = []Capability{
		CapabilityCatalogWrite,
		CapabilitySalesRead,
		CapabilitySalesWrite,
		CapabilityUsersManage,
	}

	groupCapabilities = map[string][]Capability{
		GroupSalesperson: {
			CapabilityCatalogWrite,
			CapabilitySalesRead,
			CapabilitySalesWrite,
		},
	}
)

// Capabilities resolves everything the user may do, without duplicates and
// in a stable order.
func (u *User) Capabilities() []Capability {
	seen := make(map[Capability]bool)
	caps := []Capability{}

	add := func(list []Capability) {
		for _, c := range list {
			if !seen[c] {
				seen[c] = true
				caps = append(caps, c)
			}
		}
	}

	if u.IsStaff {
		add(staffCapabilities)
	}
	for _, g := range u.Groups {
		add(groupCapabilities[g])
	}

	return caps
}

// HasCapability reports whether caps contains any of wanted.
func HasCapability(caps []Capability, wanted ...Capability) bool {
	for _, c := range caps {
		for _, w := range wanted {
			if c == w {
				return true
			}
		}
	}
	return false
}
