package herostore

// CreateHeroRequest contains the fields for creating a hero record. All five
// fields are required; values are trimmed before validation and storage.
type CreateHeroRequest struct {
	Nickname          string `json:"nickname"`
	RealName          string `json:"real_name"`
	OriginDescription string `json:"origin_description"`
	Superpowers       string `json:"superpowers"`
	CatchPhrase       string `json:"catch_phrase"`
}

// UpdateHeroRequest replaces all five text fields of an existing hero. The
// same validation rules as for creation apply.
type UpdateHeroRequest struct {
	Nickname          string `json:"nickname"`
	RealName          string `json:"real_name"`
	OriginDescription string `json:"origin_description"`
	Superpowers       string `json:"superpowers"`
	CatchPhrase       string `json:"catch_phrase"`
}
