package results

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rbright/parley/internal/interview"
)

// ErrInvalidTarget indicates navigation params that are neither an id nor an error code.
var ErrInvalidTarget = errors.New("invalid results target")

// Target is the navigation handoff to the results view: exactly one of ID or Code is set.
type Target struct {
	ID   string
	Code interview.ErrorCode
}

// IDTarget points the results view at a stored interview.
func IDTarget(id string) Target {
	return Target{ID: id}
}

// ErrorTarget points the results view at a failure message.
func ErrorTarget(code interview.ErrorCode) Target {
	return Target{Code: code}
}

// IsZero reports whether the target carries nothing.
func (t Target) IsZero() bool {
	return t.ID == "" && t.Code == ""
}

// Query encodes the target as navigation params.
func (t Target) Query() url.Values {
	values := url.Values{}
	switch {
	case t.ID != "":
		values.Set("id", t.ID)
	case t.Code != "":
		values.Set("error", string(t.Code))
	}
	return values
}

// URL renders base + "/results?" + params.
func (t Target) URL(base string) string {
	return strings.TrimRight(base, "/") + "/results?" + t.Query().Encode()
}

// ParseTarget reads id / error navigation params. Both together are rejected.
// Neither yields the zero Target, which resolves to "no data".
func ParseTarget(values url.Values) (Target, error) {
	id := strings.TrimSpace(values.Get("id"))
	code := strings.TrimSpace(values.Get("error"))
	if id != "" && code != "" {
		return Target{}, fmt.Errorf("%w: id and error are mutually exclusive", ErrInvalidTarget)
	}
	return Target{ID: id, Code: interview.ErrorCode(code)}, nil
}
