package binder

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"

	"github.com/openshelf/openshelf/pkg/errcodes"
)

var unknownFieldsRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// filesField is the struct field that receives uploaded files. It must be a
// map[string]*multipart.FileHeader tagged form:"-".
const filesField = "FormFiles"

// Binder is a custom struct that implements the Echo Binder interface. It
// decodes JSON bodies, url-encoded and multipart forms, or the query string
// of body-less GET and DELETE requests, then uses mold to clean up the params,
// creasty/defaults to fill in defaults and validator to validate them.
type Binder struct {
	queryDecoder *schema.Decoder
	formDecoder  *schema.Decoder
	conform      *mold.Transformer
	validate     *validator.Validate
}

// New initializes a new Binder instance with the appropriate validation
// functions registered.
func New() (*Binder, error) {
	queryDecoder := schema.NewDecoder()
	queryDecoder.SetAliasTag("query")
	formDecoder := schema.NewDecoder()
	formDecoder.SetAliasTag("form")

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validations := map[string]validator.Func{
		"date":    dateValidator,
		"url":     urlValidator,
		"csvfile": csvFilenameValidator,
	}
	for tag, fn := range validations {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return nil, errors.Wrapf(err, "failed to register %s validation", tag)
		}
	}

	return &Binder{
		queryDecoder: queryDecoder,
		formDecoder:  formDecoder,
		conform:      modifiers.New(),
		validate:     validate,
	}, nil
}

// Bind binds, modifies, and validates payloads against the given struct.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	disallowEmptyBody := true
	if disallow, ok := c.Get("disallow_empty_body").(bool); ok {
		disallowEmptyBody = disallow
	}

	switch {
	case req.ContentLength > 0:
		if err := b.bindBody(i, c); err != nil {
			return err
		}
	case req.Method == http.MethodGet || req.Method == http.MethodDelete:
		if err := b.decodeValues(i, c.QueryParams(), b.queryDecoder); err != nil {
			return errors.WithStack(err)
		}
	case disallowEmptyBody:
		return errcodes.EmptyRequestBody()
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}

	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}

	if err := b.validate.Struct(i); err != nil {
		errs := err.(validator.ValidationErrors)
		msg := formatValidationError(errs[0])
		return errcodes.ValidationError(msg)
	}
	return nil
}

func (b *Binder) bindBody(i interface{}, c echo.Context) error {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		return b.bindJSON(i, c)
	case strings.HasPrefix(ctype, echo.MIMEMultipartForm):
		if err := b.bindForm(i, c); err != nil {
			return err
		}
		form, err := c.MultipartForm()
		if err != nil {
			return errcodes.MalformedPayload()
		}
		setFiles(i, form.File)
		return nil
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		return b.bindForm(i, c)
	default:
		return errcodes.UnsupportedMediaType()
	}
}

func (b *Binder) bindJSON(i interface{}, c echo.Context) error {
	req := c.Request()
	defer req.Body.Close()

	dec := json.NewDecoder(req.Body)
	disallowUnknownFields := true
	if disallow, ok := c.Get("disallow_unknown_fields").(bool); ok {
		disallowUnknownFields = disallow
	}
	if disallowUnknownFields {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(i); err != nil {
		// return better error message when there are unknown fields
		if matches := unknownFieldsRE.FindAllStringSubmatch(err.Error(), -1); len(matches) > 0 && len(matches[0]) > 1 {
			return errcodes.UnknownParameter(matches[0][1])
		}

		// return better error message on type errors
		if err, ok := err.(*json.UnmarshalTypeError); ok {
			msg := formatUnmarshalTypeError(err)
			return errcodes.ValidationTypeError(msg)
		}

		logger.FromEchoContext(c).Err(err).Error("unknown json decode error")

		return errcodes.MalformedPayload()
	}
	return nil
}

func (b *Binder) bindForm(i interface{}, c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return errcodes.MalformedPayload()
	}
	return errors.WithStack(b.decodeValues(i, params, b.formDecoder))
}

// setFiles stores the first file of every multipart field in the target's
// FormFiles map, if it has one.
func setFiles(i interface{}, files map[string][]*multipart.FileHeader) {
	field := reflect.ValueOf(i).Elem().FieldByName(filesField)
	if !field.IsValid() || !field.CanSet() || len(files) == 0 {
		return
	}
	m := reflect.MakeMap(field.Type())
	for key, headers := range files {
		if len(headers) > 0 {
			m.SetMapIndex(reflect.ValueOf(key), reflect.ValueOf(headers[0]))
		}
	}
	field.Set(m)
}

func (b *Binder) decodeValues(i interface{}, params url.Values, decoder *schema.Decoder) error {
	err := decoder.Decode(i, params)
	if err == nil {
		return nil
	}
	errs, ok := err.(schema.MultiError)
	if !ok {
		return errors.WithStack(err)
	}

	var first error
	for _, first = range errs {
		break
	}
	switch e := first.(type) {
	case schema.ConversionError:
		return errcodes.ValidationTypeError(formatSchemaConversionError(e))
	case schema.UnknownKeyError:
		return errcodes.UnknownParameter(e.Key)
	}
	return errors.WithStack(first)
}
