package config

import (
	"errors"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadEnv reads the given .env files into the process environment without
// overriding variables that are already set. With no arguments it reads
// ./.env when present.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load parses the environment into v. The default .env file is read once
// per process before the first parse.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() { _ = LoadEnv() })
	return parse(v, env.Options{})
}

// LoadWithPrefix is Load for structs whose tags omit a common prefix.
func LoadWithPrefix[T any](v *T, prefix string) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() { _ = LoadEnv() })
	return parse(v, env.Options{Prefix: prefix})
}

// LoadFrom parses vars instead of the process environment. Tests use it to
// stay independent of the host.
func LoadFrom[T any](v *T, vars map[string]string) error {
	if v == nil {
		return ErrNilPointer
	}
	return parse(v, env.Options{Environment: vars})
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}

func parse[T any](v *T, opts env.Options) error {
	if err := env.ParseWithOptions(v, opts); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}
