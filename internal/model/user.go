package model

type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}
