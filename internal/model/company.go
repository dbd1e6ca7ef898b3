package model

import (
	"fmt"
	"time"
)

// Company is the canonical, validated view of one registry record.
// Values are immutable once built by the normalizer; optional fields
// are empty strings when the registry had nothing usable.
type Company struct {
	TaxID        string    `json:"tax_id"`
	LegalName    string    `json:"legal_name"`
	TradeName    string    `json:"trade_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Zip          string    `json:"zip,omitempty"`
	FoundingDate time.Time `json:"founding_date"`
	MainActivity string    `json:"main_activity"`
	Status       string    `json:"status"`
}

// DisplayName returns the trade name when present, falling back to the
// legal name. Used for email personalization and CRM payloads.
func (c Company) DisplayName() string {
	if c.TradeName != "" {
		return c.TradeName
	}
	return c.LegalName
}

// FormattedTaxID renders the tax ID in the conventional
// 00.000.000/0000-00 punctuation expected by the CRM.
func (c Company) FormattedTaxID() string {
	id := c.TaxID
	for len(id) < 14 {
		id = "0" + id
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", id[:2], id[2:5], id[5:8], id[8:12], id[12:])
}
