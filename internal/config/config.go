// Package config loads an optional YAML file of session defaults — server,
// zone, TSIG key — applied before any directives are read, the way the
// teacher's multi-zone YAML file seeded its per-zone provider configs. Here
// there is exactly one implicit session instead of a zone list, so the file
// describes one set of defaults rather than an array of zones.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/miekg/dns"
	"go.yaml.in/yaml/v2"

	"github.com/nsupdate-go/nsupdate/internal/updatectx"
)

// Defaults is the top-level structure of the YAML defaults file.
type Defaults struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Zone           string `yaml:"zone"`
	Class          string `yaml:"class"`
	TTL            uint32 `yaml:"ttl"`
	TSIGKey        string `yaml:"tsig-key"`
	TSIGSecret     string `yaml:"tsig-secret"`
	TSIGSecretFile string `yaml:"tsig-secret-file"`
	TSIGAlg        string `yaml:"tsig-alg"`
}

// Load reads and validates path, resolving TSIGSecretFile if set.
func Load(path string) (Defaults, error) {
	var d Defaults
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parsing config file: %w", err)
	}
	if d.TSIGSecret != "" && d.TSIGSecretFile != "" {
		return d, fmt.Errorf("tsig-secret and tsig-secret-file are mutually exclusive")
	}
	if d.TSIGSecretFile != "" {
		raw, err := os.ReadFile(d.TSIGSecretFile)
		if err != nil {
			return d, fmt.Errorf("reading tsig-secret-file: %w", err)
		}
		d.TSIGSecret = strings.TrimSpace(string(raw))
	}
	return d, nil
}

// Apply seeds ctx with the defaults, as if the equivalent directives had
// been the first lines of the session. Fields left at their zero value in
// Defaults are not applied, leaving ctx's own New() defaults in place.
func (d Defaults) Apply(ctx *updatectx.Context) error {
	if d.Host != "" {
		port := d.Port
		service := updatectx.DefaultDNSPort
		if port != 0 {
			service = fmt.Sprintf("%d", port)
		}
		ctx.Server = &updatectx.Endpoint{Address: d.Host, Service: service}
	}
	if d.Zone != "" {
		ctx.Zone = dns.Fqdn(d.Zone)
	}
	if d.Class != "" {
		cls, ok := dns.StringToClass[strings.ToUpper(d.Class)]
		if !ok {
			return fmt.Errorf("invalid class %q in config file", d.Class)
		}
		ctx.ClassNum = cls
		ctx.DefaultClass = cls
	}
	if d.TTL != 0 {
		ctx.DefaultTTL = d.TTL
	}
	if d.TSIGKey != "" {
		alg := dns.HmacSHA256
		if d.TSIGAlg != "" {
			alg = dns.Fqdn(d.TSIGAlg)
		}
		ctx.Key = updatectx.KeyParams{
			Name:      dns.Fqdn(d.TSIGKey),
			Algorithm: alg,
			Secret:    d.TSIGSecret,
		}
	}
	return nil
}
