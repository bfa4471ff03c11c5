package port

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type TokenPayload struct {
	CustomerID uint64
	Role       string
}

//go:generate mockgen -source=auth.go -destination=mock/auth.go -package=mock
type TokenService interface {
	CreateToken(payload *TokenPayload) (string, error)
	VerifyToken(token string) (*TokenPayload, error)
}
