package domain

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type User struct {
	ID          int64
	Username    string
	DisplayName string
	Role        Role
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
