// Package timezone infers the IANA timezone of a recipient from the signals
// available on a contact record.
//
// Precedence, first applicable wins:
//
//  1. detection disabled      -> UTC
//  2. explicit timezone field -> that zone, if it is a recognized IANA name
//  3. country code            -> representative zone of the country
//  4. company / email domain  -> zone of the country-code TLD
//  5. otherwise               -> UTC
package timezone

import (
	"context"
	"strings"
	"time"

	"github.com/ignite/sendtime-scheduler/internal/domain"
)

// UTC is the fallback zone.
const UTC = "UTC"

// Suggestion confidence per source.
const (
	explicitConfidence      = 0.95
	countryConfidence       = 0.8
	companyDomainConfidence = 0.6
	emailDomainConfidence   = 0.5
)

// Resolver maps contacts to IANA zone names. The zero value is not usable;
// use NewResolver.
type Resolver struct {
	cache Cache
}

// NewResolver creates a resolver. A nil cache disables memoization.
func NewResolver(cache Cache) *Resolver {
	return &Resolver{cache: cache}
}

// Resolve returns the zone to schedule the contact in. It never fails: a
// contact without usable signals resolves to UTC.
func (r *Resolver) Resolve(ctx context.Context, c domain.Contact, detectionEnabled bool) string {
	if !detectionEnabled {
		return UTC
	}

	key := cacheKey(c)
	if r.cache != nil {
		if tz, ok := r.cache.Get(ctx, key); ok && IsValid(tz) {
			return tz
		}
	}

	tz := UTC
	if s := r.Suggestions(c); len(s) > 0 {
		tz = s[0].Timezone
	}

	if r.cache != nil {
		r.cache.Set(ctx, key, tz)
	}
	return tz
}

// Suggestions returns every candidate zone in precedence order, each zone at
// most once. It returns an empty list when the contact carries no signal.
func (r *Resolver) Suggestions(c domain.Contact) []domain.TimezoneSuggestion {
	out := make([]domain.TimezoneSuggestion, 0, 4)
	seen := make(map[string]bool, 4)
	add := func(tz string, src domain.TimezoneSource, confidence float64) {
		if tz == "" || seen[tz] {
			return
		}
		seen[tz] = true
		out = append(out, domain.TimezoneSuggestion{Timezone: tz, Source: src, Confidence: confidence})
	}

	if tz := strings.TrimSpace(c.Timezone); IsValid(tz) {
		add(tz, domain.SourceExplicit, explicitConfidence)
	}
	add(ZoneForCountry(c.CountryCode), domain.SourceCountry, countryConfidence)
	add(ZoneForDomain(domain.NormalizeDomain(c.CompanyDomain)), domain.SourceCompanyDomain, companyDomainConfidence)
	add(ZoneForDomain(c.EmailDomain()), domain.SourceEmailDomain, emailDomainConfidence)
	return out
}

// IsValid reports whether tz is a recognized IANA zone name. "Local" and the
// empty string are rejected because their meaning depends on the host.
func IsValid(tz string) bool {
	if tz == "" || tz == "Local" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

func cacheKey(c domain.Contact) string {
	return strings.Join([]string{
		strings.TrimSpace(c.Timezone),
		strings.ToUpper(strings.TrimSpace(c.CountryCode)),
		domain.NormalizeDomain(c.CompanyDomain),
		c.EmailDomain(),
	}, "|")
}
