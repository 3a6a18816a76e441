package rules

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// Sentinel errors returned by ValidateRule.
var (
	ErrInvalidRule    = errors.New("invalid rule")
	ErrInvalidTrigger = errors.New("invalid trigger")
)

// timeOfDayPattern matches "HH:MM" with a 24-hour clock.
var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidateRule performs strict validation of a Rule before it is persisted.
// It is a pure function: it never mutates r and has no side effects.
//
// A rule with an empty trigger set is accepted (it simply never matches),
// but a rule without a target profile is rejected because a match could not
// be acted on.
func ValidateRule(r Rule) error {
	if r.ID == "" {
		return fmt.Errorf("%w: rule id must not be empty", ErrInvalidRule)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: rule name must not be empty", ErrInvalidRule)
	}
	if r.Then.SetActiveProfile == "" {
		return fmt.Errorf("%w: rule %q has no target profile", ErrInvalidRule, r.ID)
	}

	for _, t := range r.When.Triggers() {
		if err := validateTrigger(t); err != nil {
			return err
		}
	}
	return nil
}

func validateTrigger(t Trigger) error {
	switch trig := t.(type) {
	case *ReachabilityTrigger:
		if trig.URL == "" {
			return fmt.Errorf("%w: reachability url must not be empty", ErrInvalidTrigger)
		}
		if u, err := url.Parse(trig.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: reachability url %q must be http(s)", ErrInvalidTrigger, trig.URL)
		}
		if trig.ExpectStatus < 0 || trig.ExpectStatus > 599 {
			return fmt.Errorf("%w: reachability expectStatus %d out of range", ErrInvalidTrigger, trig.ExpectStatus)
		}

	case *DNSResolveTrigger:
		if trig.Hostname == "" {
			return fmt.Errorf("%w: dnsResolve hostname must not be empty", ErrInvalidTrigger)
		}
		switch trig.Matches {
		case MatchCIDR, MatchExact, MatchRegex:
		default:
			return fmt.Errorf("%w: dnsResolve matches %q is not supported", ErrInvalidTrigger, trig.Matches)
		}

	case *CaptivePortalTrigger:
		switch trig.State {
		case PortalLocked, PortalUnlocked, PortalUnknown:
		default:
			return fmt.Errorf("%w: captivePortal state %q is not supported", ErrInvalidTrigger, trig.State)
		}

	case *IPInfoTrigger:
		if trig.ProviderURL != "" {
			if u, err := url.Parse(trig.ProviderURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return fmt.Errorf("%w: ipInfo providerUrl %q must be http(s)", ErrInvalidTrigger, trig.ProviderURL)
			}
		}

	case *TimeWindowTrigger:
		for _, d := range trig.Days {
			if d < 1 || d > 7 {
				return fmt.Errorf("%w: timeWindow day %d out of range 1..7", ErrInvalidTrigger, d)
			}
		}
		if (trig.From == "") != (trig.To == "") {
			return fmt.Errorf("%w: timeWindow from/to must be given together", ErrInvalidTrigger)
		}
		if trig.From != "" && !timeOfDayPattern.MatchString(trig.From) {
			return fmt.Errorf("%w: timeWindow from %q is not HH:MM", ErrInvalidTrigger, trig.From)
		}
		if trig.To != "" && !timeOfDayPattern.MatchString(trig.To) {
			return fmt.Errorf("%w: timeWindow to %q is not HH:MM", ErrInvalidTrigger, trig.To)
		}
		if trig.TZ != "" && trig.TZ != "system" {
			return fmt.Errorf("%w: timeWindow tz %q is not supported (only \"system\")", ErrInvalidTrigger, trig.TZ)
		}

	case *ManualFlagTrigger:
		// Any bool is valid.

	default:
		return fmt.Errorf("%w: unknown trigger kind %q", ErrInvalidTrigger, t.Kind())
	}
	return nil
}
