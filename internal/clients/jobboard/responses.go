package jobboard

type checkApplicationResponse struct {
	HasApplied bool `json:"has_applied"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}
