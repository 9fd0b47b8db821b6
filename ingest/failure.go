package ingest

import "errors"

type Kind int

const (
	KindInvalidType Kind = iota + 1
	KindTooLarge
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindInvalidType:
		return "invalid_type"
	case KindTooLarge:
		return "too_large"
	case KindCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Failure is a rejected upload. Detail is safe to return to the client.
type Failure struct {
	Kind   Kind
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return f.Detail + ": " + f.Err.Error()
	}
	return f.Detail
}

func (f *Failure) Unwrap() error { return f.Err }

func TooLarge() *Failure {
	return &Failure{Kind: KindTooLarge, Detail: "File too large"}
}

// AsFailure reports whether err carries a Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
