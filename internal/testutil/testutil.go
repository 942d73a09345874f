// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"fmt"
	"io"
	"math"
	"testing"
	"time"

	"go.bug.st/serial"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertFloatNear fails the test if got is further than tol from want.
// NaN never matches.
func AssertFloatNear(t testing.TB, want, got, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.IsNaN(want) || math.Abs(got-want) > tol {
		t.Errorf("got %v, want %v ± %v", got, want, tol)
	}
}

// MockPort is an in-memory serial.Port. Reads drain the buffer and then
// return io.EOF; writes are recorded.
type MockPort struct {
	buf     []byte
	Written []byte
	Err     error // Returned by Read when set
	Closed  bool
}

// NewMockPort returns a port that will read back data.
func NewMockPort(data string) *MockPort {
	return &MockPort{buf: []byte(data)}
}

func (m *MockPort) Read(p []byte) (int, error) {
	if m.Err != nil {
		return 0, fmt.Errorf("error %q", m.Err)
	}
	if len(m.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.buf)
	m.buf = m.buf[n:]
	return n, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.Written = append(m.Written, p...)
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.Closed = true
	return nil
}

func (m *MockPort) SetMode(mode *serial.Mode) error                      { return nil }
func (m *MockPort) Drain() error                                         { return nil }
func (m *MockPort) ResetInputBuffer() error                              { return nil }
func (m *MockPort) ResetOutputBuffer() error                             { return nil }
func (m *MockPort) SetDTR(dtr bool) error                                { return nil }
func (m *MockPort) SetRTS(rts bool) error                                { return nil }
func (m *MockPort) GetModemStatusBits() (*serial.ModemStatusBits, error) { return nil, nil }
func (m *MockPort) SetReadTimeout(t time.Duration) error                 { return nil }
func (m *MockPort) Break(time.Duration) error                            { return nil }

var _ serial.Port = (*MockPort)(nil)
