// Package secrets derives per-device provisioning secrets from a KeePass
// vault.
//
// Each device product has one vault entry carrying its credentials as
// custom properties (OTA password, API key, captive-portal SSID/PSK, web
// UI login). Missing properties are generated and written back to the
// vault, so repeated runs for the same product are stable: a credential is
// generated once and then read forever. WiFi network credentials are read
// from their own entries and never generated.
package secrets
