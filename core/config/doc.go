// Package config provides configuration management for the guild backup service.
//
// It uses Viper for environment variables and godotenv for an optional .env
// file. Defaults come from the `default` struct tags of each section.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key and metrics path
//   - Storage: S3/MinIO credentials and bucket for snapshot documents
//   - Log: logging level and format
//   - Database: backup index connection (mysql or sqlite)
//   - Discord: bot token and request rate budget
//   - Backup: chatlog depths, cache size and object prefix
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Backup.ChatlogDepth)
package config
