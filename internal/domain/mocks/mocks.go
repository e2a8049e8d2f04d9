// Package mocks holds testify mocks of the domain ports.
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/talentfinder/internal/domain"
)

type MockSearchAPI struct{ mock.Mock }

func (m *MockSearchAPI) Search(ctx context.Context, jobDescription string, topK int) ([]domain.ResultStub, error) {
	args := m.Called(ctx, jobDescription, topK)
	var out []domain.ResultStub
	if v := args.Get(0); v != nil {
		out = v.([]domain.ResultStub)
	}
	return out, args.Error(1)
}

type MockProfileAPI struct{ mock.Mock }

func (m *MockProfileAPI) GetProfile(ctx context.Context, documentID string) (domain.Profile, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).(domain.Profile), args.Error(1)
}

type MockUploadAPI struct{ mock.Mock }

func (m *MockUploadAPI) UploadResumes(ctx context.Context, fileName string, archive io.Reader) (domain.UploadReceipt, error) {
	args := m.Called(ctx, fileName, archive)
	return args.Get(0).(domain.UploadReceipt), args.Error(1)
}

func (m *MockUploadAPI) UploadStatus(ctx context.Context, jobID string) (domain.UploadProgress, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(domain.UploadProgress), args.Error(1)
}

type MockAuthAPI struct{ mock.Mock }

func (m *MockAuthAPI) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthAPI) Signup(ctx context.Context, req domain.SignupRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockAuthAPI) Me(ctx context.Context, token string) (domain.AuthUser, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.AuthUser), args.Error(1)
}

type MockAdminAPI struct{ mock.Mock }

func (m *MockAdminAPI) AdminStatus(ctx context.Context) (domain.AdminStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.AdminStatus), args.Error(1)
}

func (m *MockAdminAPI) ClearResumes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockTokenStore struct{ mock.Mock }

func (m *MockTokenStore) Load(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) Save(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockTokenStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var (
	_ domain.SearchAPI  = (*MockSearchAPI)(nil)
	_ domain.ProfileAPI = (*MockProfileAPI)(nil)
	_ domain.UploadAPI  = (*MockUploadAPI)(nil)
	_ domain.AuthAPI    = (*MockAuthAPI)(nil)
	_ domain.AdminAPI   = (*MockAdminAPI)(nil)
	_ domain.TokenStore = (*MockTokenStore)(nil)
)
