// Package mocks provides gomock implementations of the session ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the interfaces in internal/ports.
// Hand-written fakes with recorded calls live in internal/mocks/auth; use these when a test needs strict
// call expectations instead.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	gw := mocks.NewMockGateway(ctrl)
//	gw.EXPECT().Refresh(gomock.Any(), "refresh-1").Return(nil, errors.New("boom"))
package mocks

// Generate mocks for the Gateway, KeyValueStore and AuditSink ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/target/aquaops-console/internal/ports AuditSink,Gateway,KeyValueStore
