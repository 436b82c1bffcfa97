package domain

import "strings"

// Contact carries the identity fields of a recipient that are used for
// timezone inference. Nothing else about the contact matters to scheduling.
type Contact struct {
	ID            string `json:"id" db:"id"`
	Email         string `json:"email" db:"email"`
	Timezone      string `json:"timezone,omitempty" db:"timezone"`
	CountryCode   string `json:"country_code,omitempty" db:"country_code"`
	CompanyDomain string `json:"company_domain,omitempty" db:"company_domain"`
}

// EmailDomain returns the lowercased domain part of the contact's email, or
// "" when the address has no usable domain.
func (c Contact) EmailDomain() string {
	at := strings.LastIndex(c.Email, "@")
	if at < 0 || at == len(c.Email)-1 {
		return ""
	}
	return NormalizeDomain(c.Email[at+1:])
}

// NormalizeDomain lowercases a domain and strips whitespace, a scheme, a
// leading "www." and any trailing dot or path.
func NormalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, ".")
}

// TimezoneSource names the signal a timezone suggestion was derived from.
type TimezoneSource string

const (
	SourceExplicit      TimezoneSource = "explicit"
	SourceCountry       TimezoneSource = "country"
	SourceCompanyDomain TimezoneSource = "company_domain"
	SourceEmailDomain   TimezoneSource = "email_domain"
	SourceDefault       TimezoneSource = "default"
)

// TimezoneSuggestion is one ranked candidate timezone for a contact.
type TimezoneSuggestion struct {
	Timezone   string         `json:"timezone"`
	Source     TimezoneSource `json:"source"`
	Confidence float64        `json:"confidence"`
}
