package main

import (
	"errors"
	"testing"
)

func TestErrChannelAcceptsBothSenders(t *testing.T) {
	errChannel := newErrChannel()
	for _, err := range []error{errors.New("interrupt"), errors.New("http: Server closed")} {
		select {
		case errChannel <- err:
		default:
			t.Fatalf("send of %q blocked with no reader", err)
		}
	}
}
