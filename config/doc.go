// Package config holds the configuration of a zapnet node: where it
// stores its identity and peers, where it listens, which chain and network
// it belongs to, and how chatty the logs are. The mapstructure tags match
// the CLI flag names so a single viper.Unmarshal covers flags and config
// files alike.
package config
