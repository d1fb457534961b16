package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/identity"
)

// IdentityService is the identity and access surface the API depends on.
type IdentityService interface {
	Signup(ctx context.Context, in identity.SignupInput) (identity.Student, error)
	Login(ctx context.Context, email, password string, role identity.Role) (identity.Principal, error)
	CreateTeacher(ctx context.Context, fullName, email, password string) (identity.Teacher, error)
	ListStudents(ctx context.Context) ([]identity.Student, error)
	Student(ctx context.Context, id int64) (identity.Student, error)
	UpdateStudent(ctx context.Context, id int64, in identity.UpdateInput) (identity.Student, error)
	DeleteStudent(ctx context.Context, id int64) error
	IdentityCode(ctx context.Context, caller identity.Principal, studentID int64) ([]byte, error)
}

// AttendanceService records and lists attendance events.
type AttendanceService interface {
	ScanAndRecord(ctx context.Context, payload string) (attendance.Event, string, error)
	ListEvents(ctx context.Context, studentID int64, limit, offset int) ([]attendance.Event, error)
}

// Sessions revokes and checks session tokens.
type Sessions interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// Server holds the API dependencies and registers the routes.
type Server struct {
	cfg        config.App
	identity   IdentityService
	attendance AttendanceService
	sessions   Sessions
}

// NewServer wires the API over its services.
func NewServer(cfg config.App, idSvc IdentityService, attSvc AttendanceService, sessions Sessions) *Server {
	return &Server{cfg: cfg, identity: idSvc, attendance: attSvc, sessions: sessions}
}

// Register attaches all /api routes to the engine. Global middleware
// (CORS, rate limiting, logging) is composed by the caller.
func (s *Server) Register(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/signup", s.handleSignup)
	api.POST("/login", s.handleLogin)
	api.POST("/logout", s.handleLogout)

	authed := api.Group("", auth.Require(s.cfg.JWTSigningKey, s.cfg.JWTIssuer, s.sessions))
	authed.GET("/student/:id/qr-code", s.handleIdentityCode)

	teacher := authed.Group("", auth.RequireTeacher())
	teacher.POST("/admin/create-teacher", s.handleCreateTeacher)
	teacher.GET("/students", s.handleListStudents)
	teacher.GET("/student/:id", s.handleGetStudent)
	teacher.PUT("/student/:id", s.handleUpdateStudent)
	teacher.DELETE("/student/:id", s.handleDeleteStudent)
	teacher.POST("/attendance/scan", s.handleScan)
	teacher.GET("/attendance/events", s.handleListEvents)
}
