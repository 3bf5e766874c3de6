package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"genkan/internal/audit"
	"genkan/pkg/domain"
	"genkan/pkg/requestcontext"
	"genkan/pkg/testutil"
)

type AuditHandlerSuite struct {
	suite.Suite
	router   chi.Router
	recorder *audit.Recorder
	guestID  domain.GuestID
}

func (s *AuditHandlerSuite) SetupTest() {
	s.recorder = audit.NewRecorder(audit.NewInMemoryStore(), slog.Default())
	s.guestID = domain.NewGuestID()

	s.router = chi.NewRouter()
	New(s.recorder, slog.Default()).Register(s.router)
}

func TestAuditHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuditHandlerSuite))
}

func (s *AuditHandlerSuite) emit(action audit.Action) {
	ctx := requestcontext.WithRole(context.Background(), domain.RoleStaff)
	ctx = requestcontext.WithTime(ctx, time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC))
	s.recorder.Emit(ctx, audit.Event{Action: action, GuestID: s.guestID.String()})
}

func (s *AuditHandlerSuite) TestList() {
	s.emit(audit.ActionVisitTimesEdited)

	s.Run("kiosk role is forbidden", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet,
			"/audit?guest_id="+s.guestID.String()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "FORBIDDEN")
	})

	s.Run("staff sees the guest's trail", func() {
		req := testutil.WithRole(testutil.NewRequest(s.T(), http.MethodGet,
			"/audit?guest_id="+s.guestID.String()), domain.RoleStaff)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)

		events := testutil.UnmarshalResponse[[]audit.Event](s.T(), rr)
		s.Require().Len(*events, 1)
		s.Equal(audit.ActionVisitTimesEdited, (*events)[0].Action)
		s.Equal(domain.RoleStaff, (*events)[0].ActorRole)
	})

	s.Run("other guests have an empty trail", func() {
		req := testutil.WithRole(testutil.NewRequest(s.T(), http.MethodGet,
			"/audit?guest_id="+domain.NewGuestID().String()), domain.RoleStaff)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`[]`, rr.Body.String())
	})

	s.Run("missing guest_id is rejected", func() {
		req := testutil.WithRole(testutil.NewRequest(s.T(), http.MethodGet, "/audit"), domain.RoleStaff)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "VALIDATION_ERROR")
	})
}
