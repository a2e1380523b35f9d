package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = ginkgo.Describe("Auth Handler", func() {
	var (
		handler  *Handler
		rbac     *RBACAuthorization
		sessions *mockSessionStore
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		sessions = newMockSessionStore()
		svc := NewService(newMockUserRepository(), sessions, NewJWTTokenGenerator(testSecret, time.Hour), bcrypt.MinCost, logger)
		handler = NewHandler(svc)
		rbac = NewRBACAuthorization(logger)
	})

	login := func(email string) string {
		body, _ := json.Marshal(LoginDTO{Email: email, Password: "correct_password"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		var resp AuthResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
		return resp.Token
	}

	ginkgo.Describe("Login", func() {
		ginkgo.It("should return 401 for bad credentials", func() {
			body, _ := json.Marshal(LoginDTO{Email: "citizen@example.com", Password: "nope"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeInvalidCredentials)))
		})

		ginkgo.It("should return 400 for a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{"))
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should return 201 with a token", func() {
			body, _ := json.Marshal(RegisterDTO{Name: "Ravi", Email: "ravi@example.com", Password: "secret1", ConfirmPassword: "secret1"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Register(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
			var resp AuthResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp.Token).ToNot(gomega.BeEmpty())
			gomega.Expect(resp.User.Role).To(gomega.Equal("citizen"))
		})

		ginkgo.It("should return 409 when the email is taken", func() {
			body, _ := json.Marshal(RegisterDTO{Name: "Dup", Email: "citizen@example.com", Password: "secret1", ConfirmPassword: "secret1"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Register(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusConflict))
		})
	})

	ginkgo.Describe("AuthMiddleware with RBAC", func() {
		var reached bool
		var protected http.Handler

		ginkgo.BeforeEach(func() {
			reached = false
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				identity, ok := internal.IdentityFromContext(r.Context())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(identity.UserID).To(gomega.BeNumerically(">", 0))
				w.WriteHeader(http.StatusOK)
			})
			protected = handler.AuthMiddleware(rbac.Require(CapAssign)(inner))
		})

		ginkgo.It("should reject a request without a token", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(reached).To(gomega.BeFalse())
		})

		ginkgo.It("should forbid a role that lacks the capability", func() {
			token := login("water@example.com")
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(reached).To(gomega.BeFalse())
		})

		ginkgo.It("should let a superadmin through", func() {
			token := login("root@example.com")
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(reached).To(gomega.BeTrue())
		})

		ginkgo.It("should reject a token after logout", func() {
			token := login("root@example.com")

			logoutReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
			logoutReq.Header.Set("Authorization", "Bearer "+token)
			logoutRec := httptest.NewRecorder()
			handler.Logout(logoutRec, logoutReq)
			gomega.Expect(logoutRec.Code).To(gomega.Equal(http.StatusNoContent))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(sessions.sessions).To(gomega.BeEmpty())
		})
	})
})

var _ = ginkgo.Describe("Capabilities", func() {
	ginkgo.DescribeTable("role capability table",
		func(role user.Role, expected CapabilitySet) {
			gomega.Expect(CapabilitiesFor(role)).To(gomega.Equal(expected))
		},
		ginkgo.Entry("citizen", user.RoleCitizen, CapabilitySet{CanSubmit: true, CanUpvote: true, CanViewStats: true}),
		ginkgo.Entry("admin", user.RoleAdmin, CapabilitySet{CanUpvote: true, CanChangeStatus: true, CanViewStats: true}),
		ginkgo.Entry("superadmin", user.RoleSuperAdmin, CapabilitySet{CanUpvote: true, CanChangeStatus: true, CanAssign: true, CanViewStats: true}),
		ginkgo.Entry("unknown role", user.Role("guest"), CapabilitySet{}),
	)

	ginkgo.It("should reserve fleet statistics and admin listing for the superadmin", func() {
		gomega.Expect(Can(user.RoleSuperAdmin, CapViewFleetStats)).To(gomega.BeTrue())
		gomega.Expect(Can(user.RoleAdmin, CapViewFleetStats)).To(gomega.BeFalse())
		gomega.Expect(Can(user.RoleAdmin, CapListAdmins)).To(gomega.BeFalse())
		gomega.Expect(Can(user.RoleCitizen, CapViewAdminIssues)).To(gomega.BeFalse())
	})
})
