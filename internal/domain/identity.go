package domain

// Identity is the verified caller behind a bearer credential.
// UserID is the fan-out key for real-time delivery.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
