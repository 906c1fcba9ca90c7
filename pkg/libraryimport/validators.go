package libraryimport

import "mime/multipart"

type ImportPayload struct {
	Recommender string                           `form:"recommender" json:"recommender" mod:"trim" validate:"max=100"`
	FormFiles   map[string]*multipart.FileHeader `form:"-" json:"-"`
}
