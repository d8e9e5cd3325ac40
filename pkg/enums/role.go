package enums

// Role is the resolved identity role attached to a request. Session handling
// lives outside this service; handlers only see the resolved role.
type Role string

const (
	RoleGuest       Role = "guest"
	RoleCustomer    Role = "customer"
	RoleDistributor Role = "distributor"
	RoleAdmin       Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleCustomer, RoleDistributor, RoleAdmin:
		return true
	}
	return false
}
