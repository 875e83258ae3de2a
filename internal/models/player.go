package models

// Player represents an immutable entry in the player catalog. The catalog is
// owned by an external collaborator; the coordinator only references IDs.
type Player struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Position string `json:"position" yaml:"position"`
	Club     string `json:"club,omitempty" yaml:"club,omitempty"`
	Country  string `json:"country,omitempty" yaml:"country,omitempty"`
	Image    string `json:"player_image,omitempty" yaml:"image,omitempty"`
}
