package util

import (
	"errors"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestTimeout(t *testing.T) {
	x := time.Millisecond * 50
	err := Timeout(func() error {
		time.Sleep(x * 4)
		return errors.New("should not get called")
	}, x)
	assert.ErrorContains(t, err, "Timeout")
}

func TestTimeoutReturnsResult(t *testing.T) {
	err := Timeout(func() error { return errors.New("boom") }, time.Second)
	assert.ErrorContains(t, err, "boom")
	assert.NilError(t, Timeout(func() error { return nil }, time.Second))
}

func TestTimeoutRecoversPanic(t *testing.T) {
	err := Timeout(func() error { panic(errors.New("released twice")) }, time.Second)
	assert.ErrorContains(t, err, "released twice")
}
