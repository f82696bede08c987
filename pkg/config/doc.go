// Package config fills configuration structs from environment variables.
//
// Structs are annotated with caarlos0/env tags. A .env file in the working
// directory, when present, is merged into the environment first through
// godotenv; real environment variables always win.
//
//	type Config struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
package config
