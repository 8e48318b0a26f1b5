package company

// ID tipe untuk Company
type ID string

// Company is pre-seeded reference data; the service never writes it.
type Company struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	ParentGroup string `json:"parent_group,omitempty"`
}
