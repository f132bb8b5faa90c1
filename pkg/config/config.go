// SPDX-License-Identifier: Apache-2.0

// Package config carries the process configuration, merged from the yaml
// config file and the command-line flags bound through viper.
package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	CfgFile     string
	Addr        string `mapstructure:"addr"`
	DeviceID    uint64 `mapstructure:"device-id"`
	P4info      string `mapstructure:"p4info"`
	Bmv2JSON    string `mapstructure:"bmv2-json"`
	RoutingInfo string `mapstructure:"routing-info"`
	Database    string `mapstructure:"database"`
	DBAddress   string `mapstructure:"dbaddress"`
	TimeoutSec  int    `mapstructure:"timeout"`
	FromKernel  bool   `mapstructure:"from-kernel"`
}

var GlobalConfig Config

func SetConfig(cfg Config) error {
	GlobalConfig = cfg
	return nil
}

func LoadConfig() {
	if err := viper.ReadInConfig(); err == nil {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}
	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Println(err)
		return
	}
}

func GetConfig() *Config {
	return &GlobalConfig
}
