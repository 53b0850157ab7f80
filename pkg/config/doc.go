// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Every component declares its own small config struct with `env` tags and
// loads it through config.Load. Parsed values are cached per type, so the
// environment is read exactly once no matter how many components share a
// config type.
package config
