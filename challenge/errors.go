package challenge

import (
	"database/sql/driver"
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// ValidationError rejects a request that failed a precondition. Nothing was
// written when one of these is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// TransientError wraps a store failure that is worth retrying with backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient store error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn)
}

// classifyStoreErr wraps retry-worthy store failures in TransientError so
// withRetry backs off and re-runs them. Validation errors and anything else
// permanent pass through unchanged.
func classifyStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, driver.ErrBadConn) {
		return &TransientError{Err: err}
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		// 1205 lock wait timeout, 1213 deadlock, 2006 server gone away
		switch myErr.Number {
		case 1205, 1213, 2006:
			return &TransientError{Err: err}
		}
	}
	msg := err.Error()
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe") {
		return &TransientError{Err: err}
	}
	return err
}
