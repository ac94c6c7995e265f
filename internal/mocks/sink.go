// Package mocks holds hand-written collaborator mocks for the
// external interfaces the transmission core consumes, in the
// go.uber.org/mock/gomock generated-code idiom (EXPECT-returning
// recorder type, Call registered against the embedded controller),
// grounded on the teacher's internal/mocks package.
package mocks

import (
	"net"
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockDatagramSink is a mock of the DatagramSink interface.
type MockDatagramSink struct {
	ctrl     *gomock.Controller
	recorder *MockDatagramSinkMockRecorder
}

// MockDatagramSinkMockRecorder is the mock recorder for MockDatagramSink.
type MockDatagramSinkMockRecorder struct {
	mock *MockDatagramSink
}

// NewMockDatagramSink creates a new mock instance.
func NewMockDatagramSink(ctrl *gomock.Controller) *MockDatagramSink {
	mock := &MockDatagramSink{ctrl: ctrl}
	mock.recorder = &MockDatagramSinkMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockDatagramSink) EXPECT() *MockDatagramSinkMockRecorder {
	return m.recorder
}

// Send mocks base method.
func (m *MockDatagramSink) Send(b []byte, peer net.Addr) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Send", b, peer)
	ret0, _ := ret[0].(error)
	return ret0
}

// Send indicates an expected call of Send.
func (mr *MockDatagramSinkMockRecorder) Send(b, peer interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Send", reflect.TypeOf((*MockDatagramSink)(nil).Send), b, peer)
}
