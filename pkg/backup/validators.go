package backup

import "mime/multipart"

type RestorePayload struct {
	ClearExisting bool                             `form:"clear_existing" json:"clear_existing"`
	FormFiles     map[string]*multipart.FileHeader `form:"-" json:"-"`
}
