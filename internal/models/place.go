package models

// Place is a physical location referenced by an AI answer. Name carries the
// cleaned, map-searchable form, never the raw sentence fragment. Places live
// only until the next AI answer replaces the displayed set.
type Place struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Address     string  `json:"address,omitempty"`
	Latitude    float64 `json:"lat,omitempty"`
	Longitude   float64 `json:"lng,omitempty"`
	Category    string  `json:"category,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Description string  `json:"description,omitempty"`
}

// HasCoordinates reports whether the place already carries a usable
// position. Extracted places start without one and are resolved through a
// place search before rendering.
func (p Place) HasCoordinates() bool {
	return p.Latitude != 0 || p.Longitude != 0
}
