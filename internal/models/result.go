package models

// Result is the envelope every operation returns to the caller.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
