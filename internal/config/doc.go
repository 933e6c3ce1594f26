// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// After the file is parsed, ILLOMX_* environment variables override individual
// fields, so a deployment can run from environment alone.
package config
