package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

type TideConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Mode    string `mapstructure:"mode"`
		Workdir string `mapstructure:"workdir"`
	} `mapstructure:"storage"`

	Server struct {
		Addr  string `mapstructure:"addr"`
		Debug bool   `mapstructure:"debug"`
	} `mapstructure:"server"`
}

func LoadConfig(path string) (*TideConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app_name", "tidesql")
	v.SetDefault("storage.mode", "memory")
	v.SetDefault("server.addr", ":5432")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg TideConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
