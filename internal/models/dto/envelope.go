package dto

// Envelope is the response body of every endpoint.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	User    *UserDTO `json:"user,omitempty"`
	Error   string   `json:"error,omitempty"`
}
