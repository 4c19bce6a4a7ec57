// Package config loads, normalizes, and validates uploader configuration data.
//
// The kiosk reads a single JSON object (config.json) carrying the FTP_URL and
// FTP_USERPWD keys; TOML files are accepted when the path ends in .toml. All
// runtime paths (import directory, ledger, log file, lock, socket, journal)
// are derived from the working directory rather than read from the file.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, positive intervals, and clear validation errors.
package config
