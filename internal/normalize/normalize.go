// Package normalize converts raw registry records into canonical
// Company values, dropping records that fail validation.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ikasa-digital/leads-cli/internal/cnpj"
	"github.com/ikasa-digital/leads-cli/internal/model"
	"github.com/ikasa-digital/leads-cli/pkg/cnpja"
)

// RejectReason classifies why a raw record was dropped.
type RejectReason string

const (
	RejectInvalidIdentity RejectReason = "invalid_identity"
	RejectMissingName     RejectReason = "missing_name"
	RejectInvalidDate     RejectReason = "invalid_date"
)

// RejectError reports a single dropped record. Rejections are local to
// one record and never abort the surrounding batch.
type RejectError struct {
	TaxID  string
	Reason RejectReason
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("record rejected (%s): %s", e.Reason, e.TaxID)
}

// Reason extracts the reject reason from err, if it carries one.
func Reason(err error) (RejectReason, bool) {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

var emailShape = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s has the basic local@domain.tld shape.
func ValidEmail(s string) bool {
	return s != "" && emailShape.MatchString(s)
}

// Normalize builds a canonical Company from one raw registry record.
// It is a pure transform: the same record always yields the same
// Company value or the same rejection.
func Normalize(office cnpja.Office) (model.Company, error) {
	taxID := strings.TrimSpace(office.TaxID)
	if !cnpj.Valid(taxID) {
		return model.Company{}, &RejectError{TaxID: taxID, Reason: RejectInvalidIdentity}
	}
	taxID = cnpj.Clean(taxID)

	legalName := strings.TrimSpace(office.Company.Name)
	if legalName == "" {
		return model.Company{}, &RejectError{TaxID: taxID, Reason: RejectMissingName}
	}

	founded, err := parseDate(office.Founded)
	if err != nil {
		return model.Company{}, &RejectError{TaxID: taxID, Reason: RejectInvalidDate}
	}

	status := strings.TrimSpace(office.Situation)
	if status == "" {
		status = "ATIVA"
	}

	return model.Company{
		TaxID:        taxID,
		LegalName:    legalName,
		TradeName:    strings.TrimSpace(office.TradeName),
		Email:        cleanEmail(office.Emails),
		Phone:        composePhone(office.Phones),
		Address:      formatAddress(office.Address),
		City:         strings.TrimSpace(office.Address.City),
		State:        strings.TrimSpace(office.Address.State),
		Zip:          CleanZip(office.Address.Zip),
		FoundingDate: founded,
		MainActivity: strings.TrimSpace(office.MainActivity.Text),
		Status:       status,
	}, nil
}

// parseDate accepts a plain calendar date or a full timestamp with a
// trailing UTC marker.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// cleanEmail takes the first listed address, lowercased. A value that
// fails the shape check is discarded, not a rejection.
func cleanEmail(emails []cnpja.Email) string {
	if len(emails) == 0 {
		return ""
	}
	addr := strings.ToLower(strings.TrimSpace(emails[0].Address))
	if !ValidEmail(addr) {
		return ""
	}
	return addr
}

// composePhone joins the first listed number's area and subscriber
// parts under the country-code prefix.
func composePhone(phones []cnpja.Phone) string {
	if len(phones) == 0 {
		return ""
	}
	area := strings.TrimSpace(phones[0].Area)
	number := strings.TrimSpace(phones[0].Number)
	if area == "" && number == "" {
		return ""
	}
	return fmt.Sprintf("+55 %s %s", area, number)
}

// formatAddress joins street, number, complement and district,
// skipping omitted parts.
func formatAddress(a cnpja.Address) string {
	var parts []string
	if s := strings.TrimSpace(a.Street); s != "" {
		parts = append(parts, s)
	}
	if n := strings.TrimSpace(a.Number); n != "" {
		parts = append(parts, "nº "+n)
	}
	if d := strings.TrimSpace(a.Details); d != "" {
		parts = append(parts, d)
	}
	if d := strings.TrimSpace(a.District); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, ", ")
}

// CleanZip formats an 8-digit CEP as 00000-000. Values with any other
// digit count pass through untouched.
func CleanZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return ""
	}
	digits := cnpj.Clean(zip)
	if len(digits) == 8 {
		return digits[:5] + "-" + digits[5:]
	}
	return zip
}
