// Package configs manages user and project configuration for secretsync.
//
// Configuration is stored in TOML format at two levels:
//
//   - User config: $XDG_CONFIG_HOME/secretsync/config.toml
//   - Project config: .secretsync.toml in the project directory
//
// # User Configuration
//
// The user config holds login state per directory scope under [scoped."<dir>"]:
// the device token, the API host and the dashboard host. Lookups walk up from
// the working directory and fall back to the global "/" scope.
//
// User device tokens are sealed with NaCl secretbox under a key derived from
// the machine fingerprint, so a copied config file is useless on another
// machine. Service tokens are stored in clear.
//
// # Project Configuration
//
// The project config binds a directory to a backend project and environment
// under [setup]. FindProjectRoot walks up the directory tree to find it.
//
// # Environment Overrides
//
// Resolve applies SECRETSYNC_TOKEN, SECRETSYNC_PROJECT, SECRETSYNC_ENVIRONMENT,
// SECRETSYNC_API_HOST, SECRETSYNC_DASHBOARD_HOST, SECRETSYNC_TIMEOUT_SECONDS
// and SECRETSYNC_RSA_BITS on top of the stored files.
package configs
