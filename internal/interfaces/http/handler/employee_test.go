package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	appemployee "github.com/crm/backend/internal/application/employee"
	"github.com/crm/backend/internal/domain/employee"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEmployeeRepository implements employee.EmployeeRepository for testing
type MockEmployeeRepository struct {
	mock.Mock
}

func (m *MockEmployeeRepository) Save(ctx context.Context, e *employee.Employee) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEmployeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*employee.Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*employee.Employee), args.Error(1)
}

func (m *MockEmployeeRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*employee.Employee, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*employee.Employee), args.Error(1)
}

func (m *MockEmployeeRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]employee.Employee, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]employee.Employee), args.Error(1)
}

func (m *MockEmployeeRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEmployeeRepository) ExistsByDocument(ctx context.Context, tenantID uuid.UUID, document valueobject.DocumentID) (bool, error) {
	args := m.Called(ctx, tenantID, document)
	return args.Bool(0), args.Error(1)
}

func (m *MockEmployeeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupEmployeeHandler(repo *MockEmployeeRepository) *EmployeeHandler {
	service := appemployee.NewEmployeeService(repo)
	return NewEmployeeHandler(service)
}

func createTestEmployee(tenantID uuid.UUID) *employee.Employee {
	e, _ := employee.NewEmployee(
		tenantID, "Carlos", "Mendez", "mechanic",
		valueobject.MustNewDocumentID(valueobject.DocumentTypeCC, "52637485"),
		nil, nil, nil,
	)
	e.ID = uuid.New()
	return e
}

func TestEmployeeHandler_Create_Success(t *testing.T) {
	repo := new(MockEmployeeRepository)
	handler := setupEmployeeHandler(repo)

	repo.On("ExistsByDocument", mock.Anything, testTenantID, mock.Anything).Return(false, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*employee.Employee")).Return(nil)

	router := setupTestRouter()
	router.POST("/employees", handler.Create)

	body, _ := json.Marshal(appemployee.CreateEmployeeRequest{
		FirstName:      "Carlos",
		LastName:       "Mendez",
		DocumentType:   "CC",
		DocumentNumber: "52637485",
		Position:       "mechanic",
		HiredAt:        "2024-03-01",
	})

	req := httptest.NewRequest(http.MethodPost, "/employees", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	repo.AssertExpectations(t)
}

func TestEmployeeHandler_Create_DuplicateDocument(t *testing.T) {
	repo := new(MockEmployeeRepository)
	handler := setupEmployeeHandler(repo)

	repo.On("ExistsByDocument", mock.Anything, testTenantID, mock.Anything).Return(true, nil)

	router := setupTestRouter()
	router.POST("/employees", handler.Create)

	body, _ := json.Marshal(appemployee.CreateEmployeeRequest{
		FirstName:      "Carlos",
		DocumentType:   "CC",
		DocumentNumber: "52637485",
	})

	req := httptest.NewRequest(http.MethodPost, "/employees", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	repo.AssertExpectations(t)
}

func TestEmployeeHandler_Create_MissingFirstName(t *testing.T) {
	repo := new(MockEmployeeRepository)
	handler := setupEmployeeHandler(repo)

	router := setupTestRouter()
	router.POST("/employees", handler.Create)

	body, _ := json.Marshal(appemployee.CreateEmployeeRequest{
		DocumentType:   "CC",
		DocumentNumber: "52637485",
	})

	req := httptest.NewRequest(http.MethodPost, "/employees", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmployeeHandler_GetByID_NotFound(t *testing.T) {
	repo := new(MockEmployeeRepository)
	handler := setupEmployeeHandler(repo)

	employeeID := uuid.New()
	repo.On("FindByIDForTenant", mock.Anything, testTenantID, employeeID).Return(nil, shared.ErrNotFound)

	router := setupTestRouter()
	router.GET("/employees/:id", handler.GetByID)

	req := httptest.NewRequest(http.MethodGet, "/employees/"+employeeID.String(), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	repo.AssertExpectations(t)
}

func TestEmployeeHandler_Deactivate_Success(t *testing.T) {
	repo := new(MockEmployeeRepository)
	handler := setupEmployeeHandler(repo)

	e := createTestEmployee(testTenantID)
	repo.On("FindByIDForTenant", mock.Anything, testTenantID, e.ID).Return(e, nil)
	repo.On("Save", mock.Anything, e).Return(nil)

	router := setupTestRouter()
	router.POST("/employees/:id/deactivate", handler.Deactivate)

	req := httptest.NewRequest(http.MethodPost, "/employees/"+e.ID.String()+"/deactivate", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, employee.EmployeeStatusInactive, e.Status)
	repo.AssertExpectations(t)
}

func TestEmployeeHandler_Delete_SoftDeletes(t *testing.T) {
	repo := new(MockEmployeeRepository)
	handler := setupEmployeeHandler(repo)

	e := createTestEmployee(testTenantID)
	repo.On("FindByIDForTenant", mock.Anything, testTenantID, e.ID).Return(e, nil)
	repo.On("Save", mock.Anything, e).Return(nil)

	router := setupTestRouter()
	router.DELETE("/employees/:id", handler.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/employees/"+e.ID.String(), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, e.IsDeleted())
	repo.AssertExpectations(t)
}

func TestEmployeeHandler_List_Success(t *testing.T) {
	repo := new(MockEmployeeRepository)
	handler := setupEmployeeHandler(repo)

	e := createTestEmployee(testTenantID)
	repo.On("FindAllForTenant", mock.Anything, testTenantID, mock.Anything).Return([]employee.Employee{*e}, nil)
	repo.On("CountForTenant", mock.Anything, testTenantID, mock.Anything).Return(int64(1), nil)

	router := setupTestRouter()
	router.GET("/employees", handler.List)

	req := httptest.NewRequest(http.MethodGet, "/employees", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []appemployee.EmployeeResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	repo.AssertExpectations(t)
}
