package settings

// UpdateSettingsPayload is a partial update; omitted fields keep their
// current value.
type UpdateSettingsPayload struct {
	GoogleBooksAPIKey           *string `json:"google_books_api_key,omitempty" validate:"omitempty,max=200"`
	EnableGoogleBooks           *bool   `json:"enable_google_books,omitempty"`
	EnableOpenLibrary           *bool   `json:"enable_open_library,omitempty"`
	EnableAudible               *bool   `json:"enable_audible,omitempty"`
	EnableGoodreads             *bool   `json:"enable_goodreads,omitempty"`
	EnablePublicImport          *bool   `json:"enable_public_import,omitempty"`
	EnablePublicMetadataRefresh *bool   `json:"enable_public_metadata_refresh,omitempty"`
	EnableGetThisBookLinks      *bool   `json:"enable_get_this_book_links,omitempty"`
}
