package domain

// User is the identity half of a dashboard session.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	ClientID int64  `json:"client_id"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the success body of POST /auth/login.
// Either field may be missing on a misbehaving server; callers check both.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
