// Package weberr decorates errors on their way out of the handlers. A wrapped
// error can carry the response body and status to send back (a 403 for a
// certificate gate, a 409 for an enrollment conflict) and structured fields
// for the request logger, without the business code knowing about HTTP.
package weberr

type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

func WithResponse(body interface{}, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

func WithFields(fields map[string]interface{}) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}
