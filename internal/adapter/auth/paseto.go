package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/MikeRez0/orderpay/internal/adapter/config"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
)

type PasetoToken struct {
	parser *paseto.Parser
	key    *paseto.V4SymmetricKey
	ttl    time.Duration
}

// New builds a token service. Without a configured hex key a random one is
// generated, so tokens do not survive a restart.
func New(cfg *config.Auth) (*PasetoToken, error) {
	parser := paseto.NewParser()

	key := paseto.NewV4SymmetricKey()
	if cfg.SymmetricKey != "" {
		var err error
		key, err = paseto.V4SymmetricKeyFromHex(cfg.SymmetricKey)
		if err != nil {
			return nil, fmt.Errorf("invalid auth symmetric key: %w", err)
		}
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &PasetoToken{
		parser: &parser,
		key:    &key,
		ttl:    ttl,
	}, nil
}

var _ port.TokenService = (*PasetoToken)(nil)

func (p *PasetoToken) CreateToken(payload *port.TokenPayload) (string, error) {
	token := paseto.NewToken()
	now := time.Now()
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(p.ttl))

	err := token.Set("payload", payload)
	if err != nil {
		return "", domain.ErrTokenCreation
	}

	return token.V4Encrypt(*p.key, nil), nil
}

func (p *PasetoToken) VerifyToken(token string) (*port.TokenPayload, error) {
	parsedToken, err := p.parser.ParseV4Local(*p.key, token, nil)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	payload := port.TokenPayload{}
	err = parsedToken.Get("payload", &payload)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if payload.Role == "" {
		payload.Role = port.RoleCustomer
	}
	return &payload, nil
}
