// Package config loads, defaults, validates, and watches the Callisto
// YAML configuration. Validation collects every field error before
// reporting, so a broken file is fixed in one pass rather than one error
// at a time. The watcher reloads the file on change with debouncing and
// keeps the previous configuration when a reload fails validation.
package config
