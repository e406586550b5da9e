package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/models"
)

func intPtr(i int) *int { return &i }

func newImportValidationFlow(allowedCountries []string) *ImportFlowImpl {
	return &ImportFlowImpl{
		smsCfg: config.SMSConfig{
			AllowedCountries: allowedCountries,
			DefaultRegion:    "NL",
		},
	}
}

func importTestSites() []*models.Site {
	return []*models.Site{
		{ID: 1, Handle: "main", Name: "Main Site", Language: "en", IsPrimary: true},
		{ID: 2, Handle: "de", Name: "German Site", Language: "de"},
	}
}

func TestImportValidateRows(t *testing.T) {
	flow := newImportValidationFlow(nil)

	t.Run("ValidRowsPass", func(t *testing.T) {
		session := &importSession{
			DefaultSiteID: 1,
			Mapping:       dto.ColumnMapping{NameColumn: intPtr(0), EmailColumn: intPtr(1), PhoneColumn: intPtr(2)},
			Rows: [][]string{
				{"Alice", "alice@example.com", "+31612345678"},
				{"Bob", "bob@example.com", ""},
			},
		}

		flow.validateRows(session, importTestSites())

		require.Len(t, session.ValidRows, 2)
		assert.Empty(t, session.ErrorRows)
		assert.Empty(t, session.DuplicateRows)

		// Data rows are numbered from 2, row 1 being the header.
		assert.Equal(t, 2, session.ValidRows[0].RowNumber)
		require.NotNil(t, session.ValidRows[0].Phone)
		assert.Equal(t, "+31612345678", *session.ValidRows[0].Phone)
		require.NotNil(t, session.ValidRows[1].Email)
		assert.Equal(t, "bob@example.com", *session.ValidRows[1].Email)
		assert.Nil(t, session.ValidRows[1].Phone)
	})

	t.Run("MissingNameAndContact", func(t *testing.T) {
		session := &importSession{
			DefaultSiteID: 1,
			Mapping:       dto.ColumnMapping{NameColumn: intPtr(0), EmailColumn: intPtr(1)},
			Rows: [][]string{
				{"", "alice@example.com"},
				{"Bob", ""},
			},
		}

		flow.validateRows(session, importTestSites())

		assert.Empty(t, session.ValidRows)
		require.Len(t, session.ErrorRows, 2)
		assert.Contains(t, session.ErrorRows[0].Message, "Name")
		assert.Contains(t, session.ErrorRows[1].Message, "Email or Phone")
	})

	t.Run("EmailNormalizedLowercase", func(t *testing.T) {
		session := &importSession{
			DefaultSiteID: 1,
			Mapping:       dto.ColumnMapping{NameColumn: intPtr(0), EmailColumn: intPtr(1)},
			Rows:          [][]string{{"Alice", "Alice@Example.COM"}},
		}

		flow.validateRows(session, importTestSites())

		require.Len(t, session.ValidRows, 1)
		assert.Equal(t, "alice@example.com", *session.ValidRows[0].Email)
	})

	t.Run("InvalidEmailAndPhoneRejected", func(t *testing.T) {
		session := &importSession{
			DefaultSiteID: 1,
			Mapping:       dto.ColumnMapping{NameColumn: intPtr(0), EmailColumn: intPtr(1), PhoneColumn: intPtr(2)},
			Rows: [][]string{
				{"Alice", "not-an-email", ""},
				{"Bob", "", "+31abc"},
			},
		}

		flow.validateRows(session, importTestSites())

		assert.Empty(t, session.ValidRows)
		require.Len(t, session.ErrorRows, 2)
		assert.Contains(t, session.ErrorRows[0].Message, "Invalid email")
		assert.Contains(t, session.ErrorRows[1].Message, "Invalid phone")
	})

	t.Run("SiteHintByHandleAndID", func(t *testing.T) {
		session := &importSession{
			DefaultSiteID: 1,
			Mapping:       dto.ColumnMapping{NameColumn: intPtr(0), EmailColumn: intPtr(1), SiteColumn: intPtr(2)},
			Rows: [][]string{
				{"Alice", "alice@example.com", "DE"},
				{"Bob", "bob@example.com", "2"},
				{"Carol", "carol@example.com", ""},
				{"Dave", "dave@example.com", "nosuchsite"},
			},
		}

		flow.validateRows(session, importTestSites())

		require.Len(t, session.ValidRows, 3)
		assert.Equal(t, uint(2), session.ValidRows[0].SiteID)
		assert.Equal(t, uint(2), session.ValidRows[1].SiteID)
		assert.Equal(t, uint(1), session.ValidRows[2].SiteID)
		require.Len(t, session.ErrorRows, 1)
		assert.Contains(t, session.ErrorRows[0].Message, "Unknown site")
	})

	t.Run("DuplicatesScopedToBatch", func(t *testing.T) {
		session := &importSession{
			DefaultSiteID: 1,
			Mapping:       dto.ColumnMapping{NameColumn: intPtr(0), EmailColumn: intPtr(1), PhoneColumn: intPtr(2)},
			Rows: [][]string{
				{"Alice", "", "+31612345678"},
				{"Alice Again", "", "+31 6 1234 5678"},
				{"Bob", "bob@example.com", ""},
				{"Bob Again", "BOB@example.com", ""},
			},
		}

		flow.validateRows(session, importTestSites())

		require.Len(t, session.ValidRows, 2)
		require.Len(t, session.DuplicateRows, 2)

		// Later rows lose to the first occurrence, matched on the
		// canonical phone or lowercased email within the same site.
		assert.Equal(t, 3, session.DuplicateRows[0].RowNumber)
		assert.Equal(t, 2, session.DuplicateRows[0].DuplicateOfRow)
		assert.Equal(t, 5, session.DuplicateRows[1].RowNumber)
		assert.Equal(t, 4, session.DuplicateRows[1].DuplicateOfRow)
	})

	t.Run("SameContactDifferentSitesNotDuplicates", func(t *testing.T) {
		session := &importSession{
			DefaultSiteID: 1,
			Mapping:       dto.ColumnMapping{NameColumn: intPtr(0), EmailColumn: intPtr(1), SiteColumn: intPtr(2)},
			Rows: [][]string{
				{"Alice", "alice@example.com", "main"},
				{"Alice", "alice@example.com", "de"},
			},
		}

		flow.validateRows(session, importTestSites())

		assert.Len(t, session.ValidRows, 2)
		assert.Empty(t, session.DuplicateRows)
	})

	t.Run("SummaryCounts", func(t *testing.T) {
		session := &importSession{
			DefaultSiteID: 1,
			Mapping:       dto.ColumnMapping{NameColumn: intPtr(0), EmailColumn: intPtr(1)},
			Rows: [][]string{
				{"Alice", "alice@example.com"},
				{"Alice Again", "alice@example.com"},
				{"", "nobody@example.com"},
			},
		}

		flow.validateRows(session, importTestSites())

		assert.Equal(t, dto.ImportSummary{Total: 3, Valid: 1, Duplicates: 1, Errors: 1}, session.Summary)
	})

	t.Run("RestrictedCountriesRejectOthers", func(t *testing.T) {
		restricted := newImportValidationFlow([]string{"NL"})
		session := &importSession{
			DefaultSiteID:  1,
			DefaultCountry: "NL",
			Mapping:        dto.ColumnMapping{NameColumn: intPtr(0), PhoneColumn: intPtr(1)},
			Rows: [][]string{
				{"Alice", "+31612345678"},
				{"Dieter", "+4915123456789"},
			},
		}

		restricted.validateRows(session, importTestSites())

		require.Len(t, session.ValidRows, 1)
		assert.Equal(t, "+31612345678", *session.ValidRows[0].Phone)
		require.Len(t, session.ErrorRows, 1)
		assert.Contains(t, session.ErrorRows[0].Message, "DE")
	})

	t.Run("LocalPhoneWithoutCountryUnderRestriction", func(t *testing.T) {
		restricted := newImportValidationFlow([]string{"NL"})
		session := &importSession{
			DefaultSiteID: 1,
			Mapping:       dto.ColumnMapping{NameColumn: intPtr(0), PhoneColumn: intPtr(1)},
			Rows: [][]string{
				{"Alice", "123"},
			},
		}

		restricted.validateRows(session, importTestSites())

		assert.Empty(t, session.ValidRows)
		require.Len(t, session.ErrorRows, 1)
		assert.Equal(t, "No phone country configured", session.ErrorRows[0].Message)
	})
}
