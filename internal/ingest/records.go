package ingest

import (
	"strings"
	"time"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

var rosterFields = map[string]bool{
	domain.FieldProviderID:            true,
	domain.FieldFirstName:             true,
	domain.FieldLastName:              true,
	domain.FieldFullName:              true,
	domain.FieldNPI:                   true,
	domain.FieldLicenseNumber:         true,
	domain.FieldLicenseState:          true,
	domain.FieldLicenseExpirationDate: true,
	domain.FieldSpecialty:             true,
	domain.FieldPhone:                 true,
	domain.FieldEmail:                 true,
	domain.FieldAddressLine1:          true,
	domain.FieldAddressCity:           true,
	domain.FieldAddressState:          true,
	domain.FieldAddressZip:            true,
}

// RosterRecords converts a normalized roster table into records, one per row.
// Absent canonical fields stay empty. When full_name is blank it is composed
// from first_name and last_name.
func (n *Normalizer) RosterRecords(t *Table) []domain.RosterRecord {
	records := make([]domain.RosterRecord, t.Len())

	for i := range t.Rows {
		rec := domain.RosterRecord{
			ProviderID:    t.Value(i, domain.FieldProviderID),
			FirstName:     t.Value(i, domain.FieldFirstName),
			LastName:      t.Value(i, domain.FieldLastName),
			FullName:      t.Value(i, domain.FieldFullName),
			NPI:           t.Value(i, domain.FieldNPI),
			LicenseNumber: t.Value(i, domain.FieldLicenseNumber),
			LicenseState:  t.Value(i, domain.FieldLicenseState),
			Specialty:     t.Value(i, domain.FieldSpecialty),
			Phone:         t.Value(i, domain.FieldPhone),
			Email:         t.Value(i, domain.FieldEmail),
			AddressLine1:  t.Value(i, domain.FieldAddressLine1),
			AddressCity:   t.Value(i, domain.FieldAddressCity),
			AddressState:  t.Value(i, domain.FieldAddressState),
			AddressZip:    t.Value(i, domain.FieldAddressZip),
		}
		rec.LicenseExpiration = n.ParseDate(t.Value(i, domain.FieldLicenseExpirationDate))

		if strings.TrimSpace(rec.FullName) == "" {
			rec.FullName = strings.TrimSpace(strings.TrimSpace(rec.FirstName) + " " + strings.TrimSpace(rec.LastName))
		}

		for col, name := range t.Columns {
			if rosterFields[name] {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			value := t.Rows[i][col]
			if n.IsDateColumn(name) {
				value = formatDate(n.ParseDate(value))
			}
			rec.Extra[name] = value
		}

		records[i] = rec
	}

	return records
}

// LicenseRegistry converts a normalized license registry table into reference
// rows tagged with the issuing state.
func (n *Normalizer) LicenseRegistry(t *Table, state string) []domain.RegistryRecord {
	authority := strings.ToUpper(strings.TrimSpace(state))
	rows := make([]domain.RegistryRecord, 0, t.Len())
	for i := range t.Rows {
		rows = append(rows, domain.RegistryRecord{
			Authority:     authority,
			LicenseNumber: strings.TrimSpace(t.Value(i, domain.FieldLicenseNumber)),
			Expiration:    n.ParseDate(t.Value(i, domain.FieldLicenseExpirationDate)),
			NPI:           strings.TrimSpace(t.Value(i, domain.FieldNPI)),
		})
	}
	return rows
}

// NPIRegistry converts a normalized identifier registry table into reference rows.
func (n *Normalizer) NPIRegistry(t *Table) []domain.RegistryRecord {
	rows := make([]domain.RegistryRecord, 0, t.Len())
	for i := range t.Rows {
		rows = append(rows, domain.RegistryRecord{
			NPI: strings.TrimSpace(t.Value(i, domain.FieldNPI)),
		})
	}
	return rows
}

func formatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format("2006-01-02")
}
