package models

// Identity is an authenticated bidder handle. It is created at authentication
// time and never mutated for the lifetime of the session.
type Identity struct {
	Name       string `json:"name"`
	Privileged bool   `json:"privileged"`
}
