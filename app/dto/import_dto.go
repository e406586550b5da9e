package dto

// UploadImportFileRequest starts an import wizard session from raw file bytes
type UploadImportFileRequest struct {
	CampaignUUID string `json:"-"`
	FileName     string `json:"-"`
	Data         []byte `json:"-"`
}

// UploadImportFileResponse returns the detected structure of the upload
type UploadImportFileResponse struct {
	SessionID string     `json:"session_id"`
	Headers   []string   `json:"headers"`
	RowCount  int        `json:"row_count"`
	Delimiter string     `json:"delimiter"`
	Preview   [][]string `json:"preview,omitempty"`
}

// ColumnMapping maps CSV column indexes onto recipient fields. A nil index
// leaves the field unmapped.
type ColumnMapping struct {
	NameColumn  *int `json:"name_column" validate:"omitempty,min=0"`
	EmailColumn *int `json:"email_column" validate:"omitempty,min=0"`
	PhoneColumn *int `json:"phone_column" validate:"omitempty,min=0"`
	SiteColumn  *int `json:"site_column" validate:"omitempty,min=0"`
}

// MapImportColumnsRequest stores the operator's column mapping on the session
type MapImportColumnsRequest struct {
	SessionID         string        `json:"-"`
	Mapping           ColumnMapping `json:"mapping"`
	DefaultSiteHandle string        `json:"default_site_handle" validate:"required,max=64"`
	DefaultCountry    *string       `json:"default_country,omitempty" validate:"omitempty,len=2"`
}

// ImportRowError describes one rejected CSV row
type ImportRowError struct {
	RowNumber int    `json:"row_number"`
	Message   string `json:"message"`
}

// ImportRowDuplicate points a duplicate row at the earlier winning row
type ImportRowDuplicate struct {
	RowNumber      int    `json:"row_number"`
	DuplicateOfRow int    `json:"duplicate_of_row"`
	Key            string `json:"key"`
}

// ImportValidRow is one row that passed validation and is ready to persist
type ImportValidRow struct {
	RowNumber int     `json:"row_number"`
	SiteID    uint    `json:"site_id"`
	Name      string  `json:"name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// ImportSummary holds the partition counts of one validation run
type ImportSummary struct {
	Total      int `json:"total"`
	Valid      int `json:"valid"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// PreviewImportResponse returns validation partitions for operator
// confirmation; nothing is persisted at this stage
type PreviewImportResponse struct {
	SessionID     string               `json:"session_id"`
	Summary       ImportSummary        `json:"summary"`
	ValidRows     []ImportValidRow     `json:"valid_rows"`
	DuplicateRows []ImportRowDuplicate `json:"duplicate_rows"`
	ErrorRows     []ImportRowError     `json:"error_rows"`
}

// CommitImportRequest persists the previously validated rows of a session
type CommitImportRequest struct {
	SessionID string `json:"-"`
}

// CommitImportResponse reports what the import created
type CommitImportResponse struct {
	Imported int           `json:"imported"`
	Summary  ImportSummary `json:"summary"`
}
