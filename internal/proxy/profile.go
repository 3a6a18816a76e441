// Package proxy defines proxy profiles and the activation boundary. The
// engine decides which profile wins; turning that into OS or browser proxy
// settings belongs to whatever sits behind the Activator.
package proxy

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the proxy configuration style a profile describes.
type Kind string

const (
	KindDirect Kind = "direct" // no proxy
	KindSystem Kind = "system" // defer to OS settings
	KindManual Kind = "manual" // fixed host:port
	KindPAC    Kind = "pac"    // proxy auto-config script
	KindRouted Kind = "routed" // per-request routing rules
)

// ErrUnknownProfile is returned when activation names a profile that does
// not exist in the store.
var ErrUnknownProfile = errors.New("unknown profile")

// Profile is a named proxy configuration. Only the fields relevant to its
// Kind are populated.
type Profile struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	Scheme string `json:"scheme,omitempty" yaml:"scheme,omitempty"` // http, https, socks4, socks5
	Host   string `json:"host,omitempty" yaml:"host,omitempty"`
	Port   int    `json:"port,omitempty" yaml:"port,omitempty"`
	PACURL string `json:"pacUrl,omitempty" yaml:"pacUrl,omitempty"`
	// BypassList holds hosts/CIDRs that skip the proxy for manual profiles.
	BypassList []string `json:"bypassList,omitempty" yaml:"bypassList,omitempty"`
}

// Validate checks the fields required by the profile's kind.
func (p Profile) Validate() error {
	if p.ID == "" {
		return errors.New("profile id must not be empty")
	}
	if p.Name == "" {
		return errors.New("profile name must not be empty")
	}
	switch p.Kind {
	case KindDirect, KindSystem, KindRouted:
	case KindManual:
		if p.Host == "" || p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("manual profile %s needs host and port 1..65535", p.ID)
		}
	case KindPAC:
		if p.PACURL == "" {
			return fmt.Errorf("pac profile %s needs pacUrl", p.ID)
		}
	default:
		return fmt.Errorf("unknown profile kind %q", p.Kind)
	}
	return nil
}

// Activator applies a selected profile. Failure (e.g. unknown profile) must
// propagate to the orchestrator's caller, never be swallowed.
type Activator interface {
	SetActiveProfile(ctx context.Context, profileID string) error
}
