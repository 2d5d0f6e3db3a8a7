package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setJWTContext simulates an authenticated request without a real token.
func setJWTContext(c *gin.Context, tenantID, userID uuid.UUID) {
	c.Set(middleware.JWTTenantIDKey, tenantID.String())
	c.Set(middleware.JWTUserIDKey, userID.String())
}

// serve runs a single GET request through fn and returns the recorded response.
func serve(fn gin.HandlerFunc, headers map[string]string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/test", fn)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandler_Success(t *testing.T) {
	h := &BaseHandler{}

	w := serve(func(c *gin.Context) {
		h.Success(c, gin.H{"name": "Ana García"})
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "Ana García", resp.Data.(map[string]any)["name"])
}

func TestBaseHandler_SuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}

	w := serve(func(c *gin.Context) {
		h.SuccessWithMeta(c, []string{"a", "b"}, 45, 2, 20)
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 20, resp.Meta.PageSize)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestBaseHandler_Created(t *testing.T) {
	h := &BaseHandler{}

	w := serve(func(c *gin.Context) {
		h.Created(c, gin.H{"id": "123"})
	}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestBaseHandler_NoContent(t *testing.T) {
	h := &BaseHandler{}

	w := serve(func(c *gin.Context) {
		h.NoContent(c)
	}, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestBaseHandler_ErrorResponses(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name       string
		fn         gin.HandlerFunc
		wantStatus int
		wantCode   string
	}{
		{
			name: "explicit error",
			fn: func(c *gin.Context) {
				h.Error(c, http.StatusConflict, dto.ErrCodeConflict, "document already registered")
			},
			wantStatus: http.StatusConflict,
			wantCode:   dto.ErrCodeConflict,
		},
		{
			name: "bad request",
			fn: func(c *gin.Context) {
				h.BadRequest(c, "invalid customer ID")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeBadRequest,
		},
		{
			name: "internal error",
			fn: func(c *gin.Context) {
				h.InternalError(c, "something went wrong")
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.fn, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestBaseHandler_BindingError(t *testing.T) {
	middleware.SetupValidator()
	h := &BaseHandler{}

	type mergeRequest struct {
		SourceID string `json:"source_id" binding:"required,uuid"`
		Reason   string `json:"reason" binding:"required"`
	}

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req mergeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindingError(c, err)
			return
		}
		h.Success(c, req)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("field violations are itemized", func(t *testing.T) {
		w := post(`{"source_id": "not-a-uuid"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

		body := w.Body.String()
		assert.Contains(t, body, "source_id")
		assert.Contains(t, body, "reason")
	})

	t.Run("malformed JSON gets a generic message", func(t *testing.T) {
		w := post(`{"source_id": `)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
		assert.Equal(t, "Invalid request body", resp.Error.Message)
		assert.NotContains(t, w.Body.String(), "unexpected end")
	})
}

func TestBaseHandler_ErrorCarriesRequestID(t *testing.T) {
	h := &BaseHandler{}

	t.Run("from request ID middleware", func(t *testing.T) {
		router := gin.New()
		router.Use(middleware.RequestID())
		router.GET("/test", func(c *gin.Context) {
			h.BadRequest(c, "bad")
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Request-ID", "merge-audit-7781")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "merge-audit-7781", resp.Error.RequestID)
	})

	t.Run("header fallback without middleware", func(t *testing.T) {
		w := serve(func(c *gin.Context) {
			h.BadRequest(c, "bad")
		}, map[string]string{"X-Request-ID": "req-fallback"})

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "req-fallback", resp.Error.RequestID)
	})

	t.Run("generated ID reaches the error body", func(t *testing.T) {
		router := gin.New()
		router.Use(middleware.RequestID())
		router.GET("/test", func(c *gin.Context) {
			h.InternalError(c, "boom")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.NotEmpty(t, resp.Error.RequestID)
		assert.Equal(t, w.Header().Get("X-Request-ID"), resp.Error.RequestID)
	})
}

func TestBaseHandler_HandleDomainError(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			err:        shared.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
		{
			name:       "already exists",
			err:        shared.ErrAlreadyExists,
			wantStatus: http.StatusConflict,
			wantCode:   dto.ErrCodeAlreadyExists,
		},
		{
			name:       "merge validation",
			err:        shared.NewDomainError("MERGE_VALIDATION", "source and destination are the same customer"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeMergeValidation,
		},
		{
			name:       "blacklisted customer",
			err:        shared.NewDomainError("CUSTOMER_BLACKLISTED", "customer is blacklisted"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeCustomerBlacklisted,
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("merging: %w", shared.ErrConcurrencyConflict),
			wantStatus: http.StatusConflict,
			wantCode:   dto.ErrCodeConcurrencyConflict,
		},
		{
			name:       "plain error becomes internal",
			err:        fmt.Errorf("pg: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(func(c *gin.Context) {
				h.HandleDomainError(c, tt.err)
			}, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestBaseHandler_HandleDomainError_DoesNotLeakInternalMessage(t *testing.T) {
	h := &BaseHandler{}

	w := serve(func(c *gin.Context) {
		h.HandleDomainError(c, fmt.Errorf("pq: password authentication failed for user crm"))
	}, nil)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.NotContains(t, resp.Error.Message, "password")
	assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
}

func TestBaseHandler_HandleError_NilIsNoop(t *testing.T) {
	h := &BaseHandler{}

	w := serve(func(c *gin.Context) {
		h.HandleError(c, nil)
		h.Success(c, gin.H{"ok": true})
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestGetTenantID(t *testing.T) {
	tenant := uuid.MustParse("7a1d2f3e-0000-4000-8000-000000000001")

	tests := []struct {
		name    string
		setup   func(c *gin.Context)
		want    uuid.UUID
		wantErr bool
	}{
		{
			name: "from jwt claims",
			setup: func(c *gin.Context) {
				c.Set(middleware.JWTTenantIDKey, tenant.String())
			},
			want: tenant,
		},
		{
			name: "from header",
			setup: func(c *gin.Context) {
				c.Request.Header.Set("X-Tenant-ID", tenant.String())
			},
			want: tenant,
		},
		{
			name: "jwt wins over header",
			setup: func(c *gin.Context) {
				c.Set(middleware.JWTTenantIDKey, tenant.String())
				c.Request.Header.Set("X-Tenant-ID", uuid.NewString())
			},
			want: tenant,
		},
		{
			name:  "development default when unset",
			setup: func(c *gin.Context) {},
			want:  defaultTenantID,
		},
		{
			name: "malformed value",
			setup: func(c *gin.Context) {
				c.Request.Header.Set("X-Tenant-ID", "acme-bogota")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
			tt.setup(c)

			got, err := getTenantID(c)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetUserID(t *testing.T) {
	userID := uuid.New()

	t.Run("from jwt claims", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
		c.Set(middleware.JWTUserIDKey, userID.String())

		got, err := getUserID(c)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("header fallback", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
		c.Request.Header.Set("X-User-ID", userID.String())

		got, err := getUserID(c)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("missing", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

		_, err := getUserID(c)
		require.Error(t, err)
	})
}
