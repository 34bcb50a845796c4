package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"beefirst/internal/platform/metrics"
	"beefirst/internal/registration/handler/mocks"
	"beefirst/internal/registration/models"
	dErrors "beefirst/pkg/domain-errors"
	"beefirst/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type RegistrationHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestRegistrationHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrationHandlerSuite))
}

func (s *RegistrationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(s.service, logger, metrics.New(prometheus.NewRegistry()), 60*time.Second)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *RegistrationHandlerSuite) activate(code any, email, password string) *http.Request {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/activate", map[string]any{"code": code})
	if email != "" || password != "" {
		req.SetBasicAuth(email, password)
	}
	return req
}

func (s *RegistrationHandlerSuite) TestHandleRegister() {
	s.Run("201 with the normalized email and ttl", func() {
		s.service.EXPECT().Register(gomock.Any(), "A@x.com", "password123").Return("a@x.com", nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/register",
			RegisterRequest{Email: " A@x.com ", Password: "password123"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[RegisterResponse](s.T(), rr)
		s.Equal("Verification code sent", resp.Message)
		s.Equal("a@x.com", resp.Email)
		s.Equal(60, resp.ExpiresInSeconds)
		s.Equal("v1", rr.Header().Get("X-API-Version"))
	})

	s.Run("409 hides which state blocked the claim", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("a@x.com", dErrors.New(dErrors.CodeConflict, "email already claimed"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/register",
			RegisterRequest{Email: "a@x.com", Password: "password123"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("conflict", body["error"])
		s.Equal("Registration failed", body["error_description"])
	})

	s.Run("422 for invalid input without calling the service", func() {
		cases := []RegisterRequest{
			{Email: "", Password: "password123"},
			{Email: "not-an-email", Password: "password123"},
			{Email: "a@x.com", Password: "short"},
		}
		for _, c := range cases {
			req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/register", c)
			rr := testutil.DoRequest(s.router, req)
			testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
		}
	})

	s.Run("400 for malformed json", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/register", `{"email":`)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("415 for non-json bodies", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/register", `email=a`)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnsupportedMediaType)
	})

	s.Run("503 when the store is unavailable", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("a@x.com", dErrors.Wrap(errors.New("conn refused"), dErrors.CodeUnavailable, "registration store unavailable"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/register",
			RegisterRequest{Email: "a@x.com", Password: "password123"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "unavailable")
	})
}

func (s *RegistrationHandlerSuite) TestHandleActivate() {
	s.Run("200 on success", func() {
		s.service.EXPECT().VerifyAndActivate(gomock.Any(), "A@x.com", "1234", "password123").
			Return(models.VerifySuccess, nil)

		rr := testutil.DoRequest(s.router, s.activate("1234", "A@x.com", "password123"))

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[ActivateResponse](s.T(), rr)
		s.Equal("Account activated", resp.Message)
		s.Equal("a@x.com", resp.Email)
	})

	s.Run("every failure result is the same 401", func() {
		var bodies []string
		for _, result := range []models.VerifyResult{
			models.VerifyInvalidCode, models.VerifyExpired, models.VerifyLocked, models.VerifyNotFound,
		} {
			s.service.EXPECT().VerifyAndActivate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(result, nil)

			rr := testutil.DoRequest(s.router, s.activate("1234", "a@x.com", "password123"))
			s.Equal(http.StatusUnauthorized, rr.Code, "result %s", result)
			bodies = append(bodies, rr.Body.String())
		}
		for _, b := range bodies {
			s.Equal(unauthorizedBody, b)
		}
	})

	s.Run("missing basic auth is the same 401", func() {
		rr := testutil.DoRequest(s.router, s.activate("1234", "", ""))
		s.Equal(http.StatusUnauthorized, rr.Code)
		s.Equal(unauthorizedBody, rr.Body.String())
	})

	s.Run("malformed authorization header is the same 401", func() {
		req := s.activate("1234", "", "")
		req.Header.Set("Authorization", "Basic !!!notbase64")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnauthorized, rr.Code)
		s.Equal(unauthorizedBody, rr.Body.String())
	})

	s.Run("422 for a malformed code", func() {
		for _, code := range []string{"123", "12345", "12a4", "", "١٢٣٤"} {
			rr := testutil.DoRequest(s.router, s.activate(code, "a@x.com", "password123"))
			testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
		}
	})

	s.Run("400 for a numeric code", func() {
		rr := testutil.DoRequest(s.router, s.activate(1234, "a@x.com", "password123"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("503 when the store is unavailable", func() {
		s.service.EXPECT().VerifyAndActivate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.VerifyResult(""), dErrors.New(dErrors.CodeUnavailable, "registration store unavailable"))

		rr := testutil.DoRequest(s.router, s.activate("1234", "a@x.com", "password123"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "unavailable")
	})
}

func TestRequestValidation(t *testing.T) {
	var nilReg *RegisterRequest
	if err := nilReg.Validate(); !dErrors.HasCode(err, dErrors.CodeBadRequest) {
		t.Fatalf("nil register request: %v", err)
	}

	req := &RegisterRequest{Email: "  user@example.com ", Password: "eightch!"}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if req.Email != "user@example.com" {
		t.Fatalf("email not trimmed: %q", req.Email)
	}

	long := &RegisterRequest{Email: "user@example.com", Password: string(make([]byte, 73))}
	if err := long.Validate(); !dErrors.HasCode(err, dErrors.CodeValidation) {
		t.Fatalf("overlong password accepted: %v", err)
	}

	if err := (&ActivateRequest{Code: "0042"}).Validate(); err != nil {
		t.Fatalf("leading zero code rejected: %v", err)
	}
}
