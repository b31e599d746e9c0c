package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `env:"ACCOUNTD_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"ACCOUNTD_PG_PORT" env-default:"5432"`
	Database string `env:"ACCOUNTD_PG_DATABASE" env-default:"accountd"`
	User     string `env:"ACCOUNTD_PG_USER" env-default:"accountd"`
	Password string `env:"ACCOUNTD_PG_PASSWORD" env-default:"pwd"`
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

// String describes the target without the password.
func (d DatabaseConfig) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", d.User, d.Host, d.Port, d.Database)
}
