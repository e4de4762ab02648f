// Package providers holds the static identity-provider directory, loaded
// from configuration at startup.
package providers

import (
	"fmt"
	"strings"

	"github.com/target/passkey-lab/internal/domain/model"
)

// Directory is an in-memory, read-only provider registry implementing
// ports.ProviderDirectory. Lookups are by web origin or token issuer.
type Directory struct {
	byOrigin map[string]model.IdentityProvider
	byIssuer map[string]model.IdentityProvider
}

// Parse builds a directory from config tuples of the form
// "origin|config-endpoint|client-id|secret[|vendor]". The optional fifth
// field marks a well-known federated-login vendor whose issuer is
// vendorIssuer and whose tokens route through the public-key verifier.
func Parse(entries []string, vendorIssuer string) (*Directory, error) {
	d := &Directory{
		byOrigin: make(map[string]model.IdentityProvider),
		byIssuer: make(map[string]model.IdentityProvider),
	}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, "|")
		if len(fields) < 4 {
			return nil, fmt.Errorf("malformed provider entry %q", entry)
		}
		p := model.IdentityProvider{
			Origin:         strings.TrimSuffix(strings.TrimSpace(fields[0]), "/"),
			ConfigEndpoint: strings.TrimSpace(fields[1]),
			ClientID:       strings.TrimSpace(fields[2]),
			Secret:         fields[3],
		}
		if len(fields) > 4 && strings.EqualFold(strings.TrimSpace(fields[4]), "vendor") {
			p.WellKnownVendor = true
			p.Issuer = vendorIssuer
		} else {
			// Directory-secret providers issue tokens under their own origin.
			p.Issuer = p.Origin
		}
		if p.Origin == "" || p.ClientID == "" {
			return nil, fmt.Errorf("provider entry %q missing origin or client id", entry)
		}
		d.byOrigin[p.Origin] = p
		d.byIssuer[p.Issuer] = p
	}
	return d, nil
}

// ByOrigin resolves a provider by its web origin.
func (d *Directory) ByOrigin(origin string) (model.IdentityProvider, bool) {
	p, ok := d.byOrigin[strings.TrimSuffix(origin, "/")]
	return p, ok
}

// ByIssuer resolves a provider by its token issuer.
func (d *Directory) ByIssuer(issuer string) (model.IdentityProvider, bool) {
	p, ok := d.byIssuer[issuer]
	return p, ok
}

// SecretFor resolves the shared verification secret for an issuer; vendor
// providers have no usable shared secret.
func (d *Directory) SecretFor(issuer string) (string, bool) {
	p, ok := d.byIssuer[issuer]
	if !ok || p.WellKnownVendor || p.Secret == "" {
		return "", false
	}
	return p.Secret, true
}
