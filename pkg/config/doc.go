// Package config stores named device configurations as YAML files.
//
// Each configuration is one <name>.yaml file in the store directory,
// holding a single hook.DeviceConfig document. The default directory is
// tr181-audit under the user configuration directory (usually
// ~/.config/tr181-audit); hand-written .yml files are picked up as well.
package config
