package importer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sells-group/cadence-sync/internal/model"
)

// Validation runs in a fixed precedence order and stops at the first
// violation so outcomes are deterministic: required-field presence, then
// format regexes, then length limits. A failing candidate keeps moving
// through owner resolution and reconciliation but is excluded from
// materialization.

var (
	linkedinRe = regexp.MustCompile(`(?i)^(https?://)?([a-z]{2,3}\.)?linkedin\.com/.+$`)
	websiteRe  = regexp.MustCompile(`^(https?://)?[a-zA-Z0-9][a-zA-Z0-9-]*(\.[a-zA-Z0-9-]+)+(/\S*)?$`)
	phoneRe    = regexp.MustCompile(`^\+?[0-9][0-9().\-\s]{5,19}$`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Field display names used in validation messages.
const (
	fieldFirstName    = "First Name"
	fieldLastName     = "Last Name"
	fieldOwnerID      = "Owner Id"
	fieldCompanyName  = "Company Name"
	fieldLinkedinURL  = "Linkedin Url"
	fieldWebsiteURL   = "Website Url"
	fieldCompanyPhone = "Company Phone Number"
	fieldJobPosition  = "Job Position"
	fieldCountry      = "Country"
	fieldZipCode      = "Zip Code"
	fieldSize         = "Size"
	fieldEmail        = "Email"
	fieldPhone        = "Phone Number"
)

// Length limits per canonical field.
const (
	maxFirstName   = 50
	maxLastName    = 75
	maxJobPosition = 100
	maxCompanyName = 200
	maxCountry     = 100
	maxZipCode     = 10
	maxSize        = 25
)

// Validate applies the full check sequence to a non-empty candidate. The
// first violation marks the candidate failed; later checks never overwrite
// its status.
func Validate(c *model.Candidate) {
	if msg := checkRequired(c); msg != "" {
		c.Fail(msg)
		return
	}
	if msg := checkFormats(c); msg != "" {
		c.Fail(msg)
		return
	}
	if msg := checkLengths(c); msg != "" {
		c.Fail(msg)
	}
}

// checkRequired verifies the identity fields every candidate must carry.
func checkRequired(c *model.Candidate) string {
	var missing []string
	if c.FirstName == "" {
		missing = append(missing, fieldFirstName)
	}
	if c.LastName == "" {
		missing = append(missing, fieldLastName)
	}
	if c.Owner.ExternalOwnerID == "" {
		missing = append(missing, fieldOwnerID)
	}
	if c.Account.Name == "" {
		missing = append(missing, fieldCompanyName)
	}
	if len(missing) == 0 {
		return ""
	}
	return strings.Join(missing, ", ") + " should be present"
}

// checkFormats validates every populated URL, phone and email field in a
// fixed order and reports all failing field names at once.
func checkFormats(c *model.Candidate) string {
	var invalid []string
	add := func(field string) {
		for _, f := range invalid {
			if f == field {
				return
			}
		}
		invalid = append(invalid, field)
	}

	if c.LinkedinURL != "" && !linkedinRe.MatchString(c.LinkedinURL) {
		add(fieldLinkedinURL)
	}
	if c.Account.URL != "" && !websiteRe.MatchString(c.Account.URL) {
		add(fieldWebsiteURL)
	}
	if c.Account.Phone != "" && !phoneRe.MatchString(c.Account.Phone) {
		add(fieldCompanyPhone)
	}
	for _, p := range c.Phones {
		if !phoneRe.MatchString(p.Value) {
			add(fieldPhone)
		}
	}
	for _, e := range c.Emails {
		if !emailRe.MatchString(e.Value) {
			add(fieldEmail)
		}
	}

	switch len(invalid) {
	case 0:
		return ""
	case 1:
		return invalid[0] + " is invalid"
	default:
		return strings.Join(invalid, ", ") + " should be valid"
	}
}

// checkLengths enforces per-field character limits, reporting the first
// field over its limit.
func checkLengths(c *model.Candidate) string {
	limits := []struct {
		field string
		value string
		max   int
	}{
		{fieldFirstName, c.FirstName, maxFirstName},
		{fieldLastName, c.LastName, maxLastName},
		{fieldJobPosition, c.JobPosition, maxJobPosition},
		{fieldCompanyName, c.Account.Name, maxCompanyName},
		{fieldCountry, c.Account.Country, maxCountry},
		{fieldZipCode, c.Account.ZipCode, maxZipCode},
		{fieldSize, c.Account.Size, maxSize},
	}
	for _, l := range limits {
		if len([]rune(l.value)) > l.max {
			return fmt.Sprintf("%s should be at most %d characters", l.field, l.max)
		}
	}
	return ""
}
