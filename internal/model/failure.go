package model

// ErrorKind classifies a ledger-side failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInsufficientBalance
	KindLimitExceeded
	KindBadAuthorization
	KindPoolPaused
	KindBadSequence
	KindInsufficientFee
	KindExpired
	KindResourceExhausted
)

var kindLabels = map[ErrorKind]string{
	KindUnknown:             "unknown",
	KindInsufficientBalance: "insufficient balance",
	KindLimitExceeded:       "limit exceeded",
	KindBadAuthorization:    "bad authorization",
	KindPoolPaused:          "pool paused",
	KindBadSequence:         "bad sequence",
	KindInsufficientFee:     "insufficient fee",
	KindExpired:             "expired",
	KindResourceExhausted:   "resource exhausted",
}

func (k ErrorKind) String() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return kindLabels[KindUnknown]
}

// ParseErrorKind maps a label or identifier such as "limit_exceeded" to a kind.
func ParseErrorKind(name string) (ErrorKind, bool) {
	normalized := normalizeKindName(name)
	for kind, label := range kindLabels {
		if normalizeKindName(label) == normalized {
			return kind, true
		}
	}
	return KindUnknown, false
}

func normalizeKindName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+'a'-'A')
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out = append(out, c)
		}
	}
	return string(out)
}

// StructuredError is the decoded form of a terminal ledger failure.
type StructuredError struct {
	Kind    ErrorKind `json:"kind"`
	RawCode int       `json:"raw_code"`
	Message string    `json:"message"`
}
