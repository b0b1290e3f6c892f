package secrets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/tobischo/gokeepasslib/v3"
)

// Vault errors.
var (
	// ErrEntryNotFound is returned when the vault has no entry for the
	// requested product in the device group.
	ErrEntryNotFound = errors.New("secrets: vault entry not found")

	// ErrGroupNotFound is returned when the vault lacks the configured
	// device group.
	ErrGroupNotFound = errors.New("secrets: vault group not found")
)

// Property names stored on a device's vault entry.
var deviceProperties = []string{
	"ap_psk",
	"ap_ssid",
	"ha_key",
	"ota_password",
	"web_password",
	"web_username",
}

// Vault is an open KeePass database.
type Vault struct {
	db       *gokeepasslib.Database
	path     string
	password string
	dirty    bool
}

// Open decodes and unlocks a KeePass database file.
func Open(path, password string) (*Vault, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	db := gokeepasslib.NewDatabase()
	db.Credentials = gokeepasslib.NewPasswordCredentials(password)
	if err := gokeepasslib.NewDecoder(f).Decode(db); err != nil {
		return nil, fmt.Errorf("decoding vault: %w", err)
	}
	if err := db.UnlockProtectedEntries(); err != nil {
		return nil, fmt.Errorf("unlocking vault: %w", err)
	}

	return &Vault{db: db, path: path, password: password}, nil
}

// findGroup locates a top-level-or-nested group by name, depth first.
func findGroup(groups []gokeepasslib.Group, name string) *gokeepasslib.Group {
	for i := range groups {
		if groups[i].Name == name {
			return &groups[i]
		}
		if g := findGroup(groups[i].Groups, name); g != nil {
			return g
		}
	}
	return nil
}

// findEntryByTitle locates an entry in a group by its Title field.
func findEntryByTitle(g *gokeepasslib.Group, title string) *gokeepasslib.Entry {
	for i := range g.Entries {
		if g.Entries[i].GetTitle() == title {
			return &g.Entries[i]
		}
	}
	return nil
}

// findEntryByUsername locates an entry by its UserName field, searching a
// group and its subgroups.
func findEntryByUsername(g *gokeepasslib.Group, username string) *gokeepasslib.Entry {
	for i := range g.Entries {
		if g.Entries[i].GetContent("UserName") == username {
			return &g.Entries[i]
		}
	}
	for i := range g.Groups {
		if e := findEntryByUsername(&g.Groups[i], username); e != nil {
			return e
		}
	}
	return nil
}

// DeviceSecrets returns the credential properties of a product's entry in
// the given vault group, generating and storing any that are missing. The
// entry itself must already exist; provisioning a brand-new product is a
// deliberate manual step.
func (v *Vault) DeviceSecrets(group, product string) (map[string]string, error) {
	g := findGroup(v.db.Content.Root.Groups, group)
	if g == nil {
		return nil, fmt.Errorf("%w: %q", ErrGroupNotFound, group)
	}
	entry := findEntryByTitle(g, product)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrEntryNotFound, group, product)
	}

	props := make(map[string]string, len(deviceProperties))
	for _, prop := range deviceProperties {
		if val := entry.GetContent(prop); val != "" {
			props[prop] = val
			continue
		}

		val, err := v.generate(prop, product)
		if err != nil {
			return nil, err
		}
		entry.Values = append(entry.Values, gokeepasslib.ValueData{
			Key:   prop,
			Value: gokeepasslib.V{Content: val},
		})
		props[prop] = val
		v.dirty = true
	}
	return props, nil
}

// generate produces a fresh value for one device property.
func (v *Vault) generate(prop, product string) (string, error) {
	switch prop {
	case "ota_password":
		return genOTAPassword()
	case "ha_key":
		return genHAKey()
	case "ap_ssid":
		return genAPSSID(product), nil
	case "ap_psk":
		return genAPPSK()
	case "web_username":
		return genWebUsername(), nil
	case "web_password":
		return genWebPassword()
	default:
		return "", fmt.Errorf("secrets: unknown property %q", prop)
	}
}

// NetworkPSK looks up a WiFi network's pre-shared key by SSID within the
// given vault group. Network entries use the SSID as their UserName and the
// PSK as their Password.
func (v *Vault) NetworkPSK(group, ssid string) (string, bool) {
	g := findGroup(v.db.Content.Root.Groups, group)
	if g == nil {
		return "", false
	}
	entry := findEntryByUsername(g, ssid)
	if entry == nil {
		return "", false
	}
	return entry.GetContent("Password"), true
}

// Dirty reports whether DeviceSecrets generated new properties since Open.
func (v *Vault) Dirty() bool {
	return v.dirty
}

// Save writes the vault back to disk if any properties were generated.
// The new vault is encoded to a temporary file and renamed over the
// original, so an encoding failure never corrupts the existing vault.
func (v *Vault) Save() error {
	if !v.dirty {
		return nil
	}
	if err := v.db.LockProtectedEntries(); err != nil {
		return fmt.Errorf("locking vault: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(v.path), filepath.Base(v.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing vault: %w", err)
	}

	if err := gokeepasslib.NewEncoder(f).Encode(v.db); err != nil {
		f.Close()           //nolint:errcheck // Best effort cleanup on error path
		os.Remove(f.Name()) //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("encoding vault: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name()) //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("writing vault: %w", err)
	}
	if err := os.Rename(f.Name(), v.path); err != nil {
		os.Remove(f.Name()) //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("replacing vault: %w", err)
	}

	v.dirty = false
	return nil
}

// KV is one rendered secret.
type KV struct {
	Key   string
	Value string
}

// Compile assembles a product's flat secrets list: the device's own
// properties keyed "<product>-<prop>", then each configured network's SSID
// and PSK keyed "wifi-<id>-ssid" and "wifi-<id>-psk". Networks whose vault
// entry is missing from the network group render as "not-found" rather than
// failing the run.
func Compile(v *Vault, deviceGroup, networkGroup, product string, networks map[int]string) ([]KV, error) {
	props, err := v.DeviceSecrets(deviceGroup, product)
	if err != nil {
		return nil, err
	}

	kvs := make([]KV, 0, len(props)+2*len(networks))
	for _, prop := range deviceProperties {
		kvs = append(kvs, KV{Key: product + "-" + prop, Value: props[prop]})
	}

	ids := make([]int, 0, len(networks))
	for id := range networks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		ssid := networks[id]
		psk, ok := v.NetworkPSK(networkGroup, ssid)
		if !ok {
			psk = "not-found"
		}
		kvs = append(kvs,
			KV{Key: fmt.Sprintf("wifi-%d-ssid", id), Value: ssid},
			KV{Key: fmt.Sprintf("wifi-%d-psk", id), Value: psk},
		)
	}
	return kvs, nil
}

// Render writes the secrets file: a header naming the product and source
// vault, then one quoted key/value pair per line.
func Render(w io.Writer, product, vaultPath string, kvs []KV) error {
	if _, err := fmt.Fprintf(w, "# Secrets for %s\n# Generated from keepass database %s\n# DO NOT EDIT\n\n", product, vaultPath); err != nil {
		return fmt.Errorf("writing secrets header: %w", err)
	}
	for _, kv := range kvs {
		if _, err := fmt.Fprintf(w, "%q: %q\n", kv.Key, kv.Value); err != nil {
			return fmt.Errorf("writing secret: %w", err)
		}
	}
	return nil
}
