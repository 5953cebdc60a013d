package protocol

const (
	ErrBadRequest = "E_BAD_REQUEST"
	ErrValidation = "E_VALIDATION"
	ErrNotFound   = "E_NOT_FOUND"
	ErrForbidden  = "E_FORBIDDEN"
	ErrStorage    = "E_STORAGE"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest: {},
	ErrValidation: {},
	ErrNotFound:   {},
	ErrForbidden:  {},
	ErrStorage:    {},
	ErrInternal:   {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// ErrorBody is the JSON error envelope of the /api routes.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
