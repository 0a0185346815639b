package model

// Role is the authorization level supplied by the identity collaborator
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAssistant Role = "assistant"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a claim value to a Role; unknown values fall back to customer
func ParseRole(s string) Role {
	switch r := Role(s); r {
	case RoleAssistant, RoleAdmin:
		return r
	}
	return RoleCustomer
}

// CanManage reports whether the role may change catalog, stock and order status
func (r Role) CanManage() bool {
	return r == RoleAssistant || r == RoleAdmin
}

// CanDelete reports whether the role may permanently remove records
func (r Role) CanDelete() bool {
	return r == RoleAdmin
}
