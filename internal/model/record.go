package model

import "strings"

// ExternalRecord is one raw row from an external source (CRM API response,
// spreadsheet row, CSV row). Keys are source field/column names.
type ExternalRecord map[string]string

// Get returns the trimmed value for a source field, or "" when absent.
func (r ExternalRecord) Get(field string) string {
	if field == "" {
		return ""
	}
	return strings.TrimSpace(r[field])
}

// ExternalID returns the record's source identifier per the field map.
func (r ExternalRecord) ExternalID(fm *FieldMap) string {
	return r.Get(fm.ExternalIDField)
}

// TypedColumn maps one typed email/phone entry to a source column.
type TypedColumn struct {
	Type       string `json:"type" yaml:"type" mapstructure:"type"`
	ColumnName string `json:"column_name" yaml:"column_name" mapstructure:"column_name"`
}

// FieldMap is the user-configured mapping from canonical field names to the
// external system's field/column names. First name, last name, company and
// owner id are required; everything else is optional.
type FieldMap struct {
	FirstName          string        `json:"first_name" yaml:"first_name" mapstructure:"first_name" validate:"required"`
	LastName           string        `json:"last_name" yaml:"last_name" mapstructure:"last_name" validate:"required"`
	Company            string        `json:"company" yaml:"company" mapstructure:"company" validate:"required"`
	OwnerID            string        `json:"owner_id" yaml:"owner_id" mapstructure:"owner_id" validate:"required"`
	LinkedinURL        string        `json:"linkedin_url,omitempty" yaml:"linkedin_url" mapstructure:"linkedin_url"`
	JobPosition        string        `json:"job_position,omitempty" yaml:"job_position" mapstructure:"job_position"`
	Country            string        `json:"country,omitempty" yaml:"country" mapstructure:"country"`
	ZipCode            string        `json:"zip_code,omitempty" yaml:"zip_code" mapstructure:"zip_code"`
	Size               string        `json:"size,omitempty" yaml:"size" mapstructure:"size"`
	URL                string        `json:"url,omitempty" yaml:"url" mapstructure:"url"`
	CompanyPhoneNumber string        `json:"company_phone_number,omitempty" yaml:"company_phone_number" mapstructure:"company_phone_number"`
	Emails             []TypedColumn `json:"emails,omitempty" yaml:"emails" mapstructure:"emails"`
	Phones             []TypedColumn `json:"phones,omitempty" yaml:"phones" mapstructure:"phones"`

	// ExternalIDField names the source field holding the record identifier.
	ExternalIDField string `json:"external_id_field" yaml:"external_id_field" mapstructure:"external_id_field" validate:"required"`
}
