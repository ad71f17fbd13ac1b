// Package mocks provides test doubles for the pdftable package.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/meralco-rates/internal/model"
)

// MockExtractor is a mock type for the Extractor interface.
type MockExtractor struct {
	mock.Mock
}

// ExtractTables provides a mock function with given fields: ctx, pdfPath
func (_m *MockExtractor) ExtractTables(ctx context.Context, pdfPath string) ([]model.Page, error) {
	ret := _m.Called(ctx, pdfPath)

	if len(ret) == 0 {
		panic("no return value specified for ExtractTables")
	}

	var r0 []model.Page
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]model.Page, error)); ok {
		return rf(ctx, pdfPath)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []model.Page); ok {
		r0 = rf(ctx, pdfPath)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Page)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, pdfPath)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockExtractor creates a new instance of MockExtractor. It also registers
// a testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockExtractor(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockExtractor {
	m := &MockExtractor{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
