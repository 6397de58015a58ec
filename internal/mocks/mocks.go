// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
)

// -- Authentication --

// MockAuthenticator mocks the page login step.
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, page schemas.Page) bool {
	args := m.Called(ctx, page)
	return args.Bool(0)
}

// -- Extraction --

// MockExtractor mocks the extraction pipeline. Return either a record or a
// func(context.Context, string) schemas.MetadataRecord computing one per call.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, url string) schemas.MetadataRecord {
	args := m.Called(ctx, url)
	if fn, ok := args.Get(0).(func(context.Context, string) schemas.MetadataRecord); ok {
		return fn(ctx, url)
	}
	return args.Get(0).(schemas.MetadataRecord)
}

// -- Form filling --

// MockFiller mocks the form fill orchestrator.
type MockFiller struct {
	mock.Mock
}

func (m *MockFiller) Fill(ctx context.Context, page schemas.Page, rec schemas.MetadataRecord) error {
	args := m.Called(ctx, page, rec)
	return args.Error(0)
}

func (m *MockFiller) Submit(ctx context.Context, page schemas.Page) bool {
	args := m.Called(ctx, page)
	return args.Bool(0)
}

// -- Network --

// MockDownloader mocks an image download. When the first return value is a
// []byte it is written to w before returning.
type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) Download(ctx context.Context, url string, w io.Writer) (string, error) {
	args := m.Called(ctx, url, w)
	if body, ok := args.Get(0).([]byte); ok {
		if _, err := w.Write(body); err != nil {
			return "", err
		}
	}
	return args.String(1), args.Error(2)
}
