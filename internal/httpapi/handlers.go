package httpapi

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/auth"
	"rollcall/internal/identity"
	"rollcall/internal/metrics"
	"rollcall/internal/qrcode"
)

// fail converts any service error to the response envelope. Unexpected
// detail stays in the server log.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"success": false, "error": apperr.PublicMessage(err)})
}

func failBind(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
}

type studentSummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func summarize(st identity.Student) studentSummary {
	return studentSummary{ID: st.ID, Name: st.FullName, Email: st.Email, CreatedAt: st.CreatedAt}
}

func (s *Server) handleSignup(c *gin.Context) {
	var req struct {
		FullName        string `json:"full_name" form:"full_name"`
		Email           string `json:"email" form:"email"`
		Password        string `json:"password" form:"password"`
		ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
	}
	if err := c.ShouldBind(&req); err != nil {
		failBind(c)
		return
	}

	st, err := s.identity.Signup(c.Request.Context(), identity.SignupInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		fail(c, err)
		return
	}

	metrics.SignupsTotal.Inc()
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Account created successfully",
		"student":  summarize(st),
		"redirect": "/?signup=success",
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
		UserType string `json:"user_type" form:"user_type"`
	}
	if err := c.ShouldBind(&req); err != nil {
		failBind(c)
		return
	}
	if req.UserType == "" {
		req.UserType = string(identity.RoleStudent)
	}
	role, err := identity.ParseRole(req.UserType)
	if err != nil {
		fail(c, err)
		return
	}

	p, err := s.identity.Login(c.Request.Context(), req.Email, req.Password, role)
	if err != nil {
		if apperr.Is(err, apperr.Authentication) {
			metrics.AuthFailuresTotal.Inc()
		}
		fail(c, err)
		return
	}

	sess, err := auth.Issue(p, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.SessionTTL)
	if err != nil {
		fail(c, apperr.Wrap(apperr.Unexpected, "token issue failed", err))
		return
	}

	redirect := "/index.html"
	if p.IsTeacher() {
		redirect = "/admin.html"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Login successful",
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt.Unix(),
		"user_type":  string(p.Role),
		"redirect":   redirect,
	})
}

// handleLogout is idempotent: a missing or invalid token still succeeds,
// a valid one is revoked for the rest of its lifetime.
func (s *Server) handleLogout(c *gin.Context) {
	if tokenStr, ok := auth.BearerToken(c); ok {
		if claims, _, err := auth.Parse(tokenStr, s.cfg.JWTSigningKey, s.cfg.JWTIssuer); err == nil {
			if err := s.sessions.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
				fail(c, apperr.Wrap(apperr.Unexpected, "logout failed", err))
				return
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "redirect": "/"})
}

func (s *Server) handleCreateTeacher(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name" form:"full_name"`
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.ShouldBind(&req); err != nil {
		failBind(c)
		return
	}

	t, err := s.identity.CreateTeacher(c.Request.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Teacher account created successfully",
		"teacher": gin.H{"id": t.ID, "name": t.FullName, "email": t.Email},
	})
}

func (s *Server) handleListStudents(c *gin.Context) {
	students, err := s.identity.ListStudents(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	summaries := make([]studentSummary, 0, len(students))
	for _, st := range students {
		summaries = append(summaries, summarize(st))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": summaries})
}

func studentID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.Validation, "invalid student id")
	}
	return id, nil
}

func (s *Server) handleGetStudent(c *gin.Context) {
	id, err := studentID(c)
	if err != nil {
		fail(c, err)
		return
	}
	st, err := s.identity.Student(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": summarize(st)})
}

func (s *Server) handleUpdateStudent(c *gin.Context) {
	id, err := studentID(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req struct {
		Name  *string `json:"name" form:"name"`
		Email *string `json:"email" form:"email"`
	}
	if err := c.ShouldBind(&req); err != nil {
		failBind(c)
		return
	}

	st, err := s.identity.UpdateStudent(c.Request.Context(), id, identity.UpdateInput{
		FullName: req.Name,
		Email:    req.Email,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Student updated successfully",
		"student": summarize(st),
	})
}

func (s *Server) handleDeleteStudent(c *gin.Context) {
	id, err := studentID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.identity.DeleteStudent(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Student deleted successfully"})
}

func (s *Server) handleIdentityCode(c *gin.Context) {
	id, err := studentID(c)
	if err != nil {
		fail(c, err)
		return
	}
	caller, ok := auth.PrincipalFrom(c)
	if !ok {
		fail(c, apperr.New(apperr.Authentication, "authentication required"))
		return
	}

	code, err := s.identity.IdentityCode(c.Request.Context(), caller, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=qr_code_%d.png", id))
	c.Data(http.StatusOK, qrcode.ContentType, code)
}

func (s *Server) handleScan(c *gin.Context) {
	var req struct {
		QRData string `json:"qr_data" form:"qr_data"`
	}
	if err := c.ShouldBind(&req); err != nil {
		failBind(c)
		return
	}

	evt, studentName, err := s.attendance.ScanAndRecord(c.Request.Context(), req.QRData)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("rejected").Inc()
		fail(c, err)
		return
	}

	metrics.ScansTotal.WithLabelValues("recorded").Inc()
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("Attendance marked for %s", studentName),
		"student_name": studentName,
		"timestamp":    evt.Timestamp.Format(time.RFC3339),
	})
}

func (s *Server) handleListEvents(c *gin.Context) {
	var studentID int64
	if v := c.Query("student_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			fail(c, apperr.New(apperr.Validation, "invalid student id"))
			return
		}
		studentID = parsed
	}
	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	events, err := s.attendance.ListEvents(c.Request.Context(), studentID, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "events": events})
}
