package dto

import "github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	models.Principal
	Token string `json:"token"`
}
