// Package config loads and validates the mbxreport configuration file.
package config
