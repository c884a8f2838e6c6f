// Package config loads, normalizes, and validates ffbuild configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ANDROID_NDK_HOME. Workspace paths are anchored at paths.work_dir so the
// sources/, build/, output/ and stats/ layout follows the work directory.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
