package auth

import "ballot-node/modules/config"

type AuthConfig struct {
	JwtSecret     string
	TokenTTLHours int
}

func NewAuthConfig() *config.Config[AuthConfig] {
	return config.New(AuthConfig{
		JwtSecret:     "change-me",
		TokenTTLHours: 12,
	})
}
