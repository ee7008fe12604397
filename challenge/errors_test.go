package challenge

import (
	"database/sql/driver"
	"errors"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
)

func TestClassifyStoreErr(t *testing.T) {
	if classifyStoreErr(nil) != nil {
		t.Fatal("nil must stay nil")
	}

	deadlock := &mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	if !isTransient(classifyStoreErr(deadlock)) {
		t.Fatal("deadlock should classify as transient")
	}
	if !isTransient(classifyStoreErr(driver.ErrBadConn)) {
		t.Fatal("bad connection should classify as transient")
	}

	dup := &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if isTransient(classifyStoreErr(dup)) {
		t.Fatal("duplicate key is permanent, retrying it is pointless")
	}

	ve := &ValidationError{Reason: "challenge day out of range"}
	if got := classifyStoreErr(ve); got != error(ve) {
		t.Fatalf("validation errors must pass through unchanged, got %v", got)
	}

	// already wrapped: no double wrapping
	wrapped := &TransientError{Err: errors.New("flaky")}
	if got := classifyStoreErr(wrapped); got != error(wrapped) {
		t.Fatalf("expected the same wrapper back, got %v", got)
	}
}

func TestWithRetryRecoversFromTransientFailures(t *testing.T) {
	attempts := 0
	err := withRetry(func() error {
		attempts++
		if attempts < 3 {
			return &TransientError{Err: errors.New("flaky")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	sentinel := errors.New("permanent")
	err := withRetry(func() error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("permanent errors must not be retried, got %d attempts", attempts)
	}
}
