package model

// Status is the two-valued lifecycle flag shared by every toggleable entity.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is one of the two known values.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Flip returns the opposite status. Anything that is not active flips to active.
func (s Status) Flip() Status {
	if s == StatusActive {
		return StatusInactive
	}
	return StatusActive
}
