package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func viperBindFlag(key string, flags *pflag.FlagSet, flag string) error {
	return viper.BindPFlag(key, flags.Lookup(flag))
}
