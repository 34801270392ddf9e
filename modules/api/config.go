package api

import "ballot-node/modules/config"

type ApiConfig struct {
	Addr string
	// SignerKey is the operator key used for admin-side contract calls
	// (deploy, lifecycle, results). Participant calls carry their own key.
	SignerKey string
}

func NewApiConfig() *config.Config[ApiConfig] {
	return config.New(ApiConfig{
		Addr: ":8080",
	})
}
