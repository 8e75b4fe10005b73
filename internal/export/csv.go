package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/query"
)

// ErrNotTabular is returned for report results that have no row layout.
var ErrNotTabular = errors.New("report result is not tabular")

// Download formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

const csvDateLayout = "2006-01-02"

var recordHeader = []string{
	"index", "provider_id", "full_name", "npi", "license_number", "license_state",
	"license_expiration_date", "specialty", "phone", "email", "address_line1",
	"address_city", "address_state", "address_zip", "validation_state",
	"registry_expiration_date", "license_found", "license_expired",
	"license_state_mismatch", "npi_found", "npi_missing", "phone_issue",
	"specialty_missing", "duplicate_suspect", "multi_state_single_license",
}

var groupHeader = []string{
	"group", "total_records", "license_expired", "license_state_mismatch",
	"npi_missing", "phone_issue", "specialty_missing", "duplicate_suspect",
	"multi_state_single_license", "total_issues",
}

var pairHeader = []string{
	"index_a", "index_b", "similarity_score",
	"provider_id_a", "provider_id_b", "full_name_a", "full_name_b",
}

var monthHeader = []string{"month", "count"}

// WriteCSV writes a report result as CSV with a header row. Record lists,
// group summaries, duplicate pairs and the expiration timeline are tabular;
// anything else returns ErrNotTabular before writing.
func WriteCSV(w io.Writer, data any) error {
	var header []string
	var rows [][]string

	switch v := data.(type) {
	case []domain.AugmentedRecord:
		header = recordHeader
		for i := range v {
			rows = append(rows, recordRow(&v[i]))
		}
	case []query.GroupSummary:
		header = groupHeader
		for _, g := range v {
			rows = append(rows, groupRow(g))
		}
	case []query.PairView:
		header = pairHeader
		for _, p := range v {
			rows = append(rows, []string{
				strconv.Itoa(p.IndexA),
				strconv.Itoa(p.IndexB),
				strconv.FormatFloat(p.Similarity, 'f', 2, 64),
				p.ProviderIDA, p.ProviderIDB, p.NameA, p.NameB,
			})
		}
	case []query.MonthCount:
		header = monthHeader
		for _, m := range v {
			rows = append(rows, []string{m.Month, strconv.Itoa(m.Count)})
		}
	default:
		return fmt.Errorf("%w: %T", ErrNotTabular, data)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func recordRow(r *domain.AugmentedRecord) []string {
	return []string{
		strconv.Itoa(r.Index),
		r.ProviderID,
		r.FullName,
		r.NPI,
		r.LicenseNumber,
		r.LicenseState,
		formatDate(r.LicenseExpiration),
		r.Specialty,
		r.Phone,
		r.Email,
		r.AddressLine1,
		r.AddressCity,
		r.AddressState,
		r.AddressZip,
		r.RegistryState,
		formatDate(r.RegistryExpiration),
		strconv.FormatBool(r.LicenseFound),
		strconv.FormatBool(r.LicenseExpired),
		strconv.FormatBool(r.LicenseStateMismatch),
		strconv.FormatBool(r.NPIFound),
		strconv.FormatBool(r.NPIMissing),
		strconv.FormatBool(r.PhoneIssue),
		strconv.FormatBool(r.SpecialtyMissing),
		strconv.FormatBool(r.DuplicateSuspect),
		strconv.FormatBool(r.MultiStateSingleLicense),
	}
}

func groupRow(g query.GroupSummary) []string {
	return []string{
		g.Group,
		strconv.Itoa(g.TotalRecords),
		strconv.Itoa(g.LicenseExpired),
		strconv.Itoa(g.LicenseStateMismatch),
		strconv.Itoa(g.NPIMissing),
		strconv.Itoa(g.PhoneIssue),
		strconv.Itoa(g.SpecialtyMissing),
		strconv.Itoa(g.DuplicateSuspect),
		strconv.Itoa(g.MultiStateSingleLicense),
		strconv.Itoa(g.TotalIssues),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(csvDateLayout)
}
