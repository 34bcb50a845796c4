package handler

type RegisterResponse struct {
	Message          string `json:"message"`
	Email            string `json:"email"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

type ActivateResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}
