package db

import "ballot-node/modules/config"

type DbConfig struct {
	DbURI  string
	DbName string
}

func NewDbConfig() *config.Config[DbConfig] {
	return config.New(DbConfig{
		DbURI:  "mongodb://localhost:27017",
		DbName: "ballot",
	})
}
