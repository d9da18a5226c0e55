package api

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid_request")
	ErrUnsupportedModel = errors.New("unsupported_model")
)

type invalidRequestError struct {
	msg   string
	param string
	kind  error
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return e.kind
}

func newInvalidRequest(param, msg string) error {
	return invalidRequestError{msg: msg, param: param, kind: ErrInvalidRequest}
}

func newUnsupportedModel(model string) error {
	return invalidRequestError{msg: "Unsupported model: " + model, param: "model", kind: ErrUnsupportedModel}
}

func errorParam(err error) string {
	var ire invalidRequestError
	if errors.As(err, &ire) {
		return ire.param
	}
	return ""
}
