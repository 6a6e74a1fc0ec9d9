package domain

// Species is static reference data. Every species belongs to exactly one
// evolution family; family membership never changes during a run.
type Species struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FamilyID int    `json:"family_id"`
}

// Family is a fixed group of species related by evolution. It is the unit
// of exclusivity for the dupes clause and the blocklist.
type Family struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
