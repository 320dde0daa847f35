package models

// Org is a tenant.
type Org struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Branch is a sub-tenant of an organization.
type Branch struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	OrgID string `json:"orgId"`
}

// Driver is a user with the Driver role as listed to fleet managers.
type Driver struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Phone  string  `json:"phone"`
	Rating float64 `json:"rating"`
}
