package model

// EmailValidationResult is the verdict returned by the email validation API.
// Reason is populated for both valid and invalid verdicts.
type EmailValidationResult struct {
	Email  string `json:"email"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}
