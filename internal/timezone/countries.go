package timezone

import "strings"

// countryZones maps ISO 3166-1 alpha-2 codes to a representative IANA zone.
// Multi-zone countries map to their most populous business zone.
var countryZones = map[string]string{
	"AE": "Asia/Dubai",
	"AR": "America/Argentina/Buenos_Aires",
	"AT": "Europe/Vienna",
	"AU": "Australia/Sydney",
	"BE": "Europe/Brussels",
	"BG": "Europe/Sofia",
	"BR": "America/Sao_Paulo",
	"CA": "America/Toronto",
	"CH": "Europe/Zurich",
	"CL": "America/Santiago",
	"CN": "Asia/Shanghai",
	"CO": "America/Bogota",
	"CZ": "Europe/Prague",
	"DE": "Europe/Berlin",
	"DK": "Europe/Copenhagen",
	"EE": "Europe/Tallinn",
	"EG": "Africa/Cairo",
	"ES": "Europe/Madrid",
	"FI": "Europe/Helsinki",
	"FR": "Europe/Paris",
	"GB": "Europe/London",
	"GR": "Europe/Athens",
	"HK": "Asia/Hong_Kong",
	"HR": "Europe/Zagreb",
	"HU": "Europe/Budapest",
	"ID": "Asia/Jakarta",
	"IE": "Europe/Dublin",
	"IL": "Asia/Jerusalem",
	"IN": "Asia/Kolkata",
	"IS": "Atlantic/Reykjavik",
	"IT": "Europe/Rome",
	"JP": "Asia/Tokyo",
	"KE": "Africa/Nairobi",
	"KR": "Asia/Seoul",
	"LT": "Europe/Vilnius",
	"LU": "Europe/Luxembourg",
	"LV": "Europe/Riga",
	"MX": "America/Mexico_City",
	"MY": "Asia/Kuala_Lumpur",
	"NG": "Africa/Lagos",
	"NL": "Europe/Amsterdam",
	"NO": "Europe/Oslo",
	"NZ": "Pacific/Auckland",
	"PE": "America/Lima",
	"PH": "Asia/Manila",
	"PK": "Asia/Karachi",
	"PL": "Europe/Warsaw",
	"PT": "Europe/Lisbon",
	"RO": "Europe/Bucharest",
	"RU": "Europe/Moscow",
	"SA": "Asia/Riyadh",
	"SE": "Europe/Stockholm",
	"SG": "Asia/Singapore",
	"SI": "Europe/Ljubljana",
	"SK": "Europe/Bratislava",
	"TH": "Asia/Bangkok",
	"TR": "Europe/Istanbul",
	"TW": "Asia/Taipei",
	"UA": "Europe/Kiev",
	"US": "America/New_York",
	"VN": "Asia/Ho_Chi_Minh",
	"ZA": "Africa/Johannesburg",
}

// ccTLD labels that differ from the ISO code of their country.
var tldAliases = map[string]string{
	"uk": "GB",
}

// Country-code TLDs commonly registered as vanity domains with no geographic
// meaning.
var vanityTLDs = map[string]bool{
	"ai": true, "cc": true, "co": true, "fm": true, "gg": true, "io": true,
	"ly": true, "me": true, "sh": true, "so": true, "to": true, "tv": true,
	"ws": true,
}

// ZoneForCountry returns the representative zone for an ISO 3166-1 alpha-2
// code, or "" when the code is unknown.
func ZoneForCountry(code string) string {
	return countryZones[strings.ToUpper(strings.TrimSpace(code))]
}

// ZoneForDomain applies the top-level-domain heuristic: "firm.co.uk" and
// "firm.uk" resolve to Europe/London, "acme.de" to Europe/Berlin. Generic and
// vanity TLDs resolve to "".
func ZoneForDomain(domain string) string {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	dot := strings.LastIndex(domain, ".")
	if dot < 0 || dot == len(domain)-1 {
		return ""
	}
	tld := domain[dot+1:]
	if vanityTLDs[tld] {
		return ""
	}
	if code, ok := tldAliases[tld]; ok {
		return countryZones[code]
	}
	if len(tld) != 2 {
		return ""
	}
	return countryZones[strings.ToUpper(tld)]
}
