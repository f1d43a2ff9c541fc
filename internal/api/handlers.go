package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"excusedesk/internal/attachments"
	"excusedesk/internal/auth"
	"excusedesk/internal/letters"
)

const dateLayout = "2006-01-02"

// writeStoreErr maps the store's error taxonomy onto HTTP status codes.
func (s *Server) writeStoreErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, letters.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, letters.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, letters.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("store operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		ReviewerID string `json:"reviewer_id" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reviewer, err := s.store.Login(c.Request.Context(), req.ReviewerID, req.Password)
	if err != nil {
		s.writeStoreErr(c, err)
		return
	}

	tokens, err := auth.Issue(reviewer.ID, string(reviewer.Role), s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
		"reviewer":      reviewer,
		"is_admin":      reviewer.Role == letters.RoleAdmin,
	})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.store.Logout(c.Request.Context()); err != nil {
		s.writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_out": true})
}

func (s *Server) session(c *gin.Context) {
	cur := s.store.CurrentReviewer()
	if cur == nil {
		c.JSON(http.StatusOK, gin.H{"reviewer": nil, "is_admin": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviewer": cur, "is_admin": s.store.IsAdmin()})
}

func (s *Server) submitLetter(c *gin.Context) {
	var req struct {
		StudentID     string `json:"student_id" binding:"required"`
		AbsenceDate   string `json:"absence_date" binding:"required"`
		Reason        string `json:"reason" binding:"required"`
		AttachmentURL string `json:"attachment_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	absence, err := time.ParseInLocation(dateLayout, req.AbsenceDate, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "absence_date must be YYYY-MM-DD"})
		return
	}

	letter, err := s.store.SubmitLetter(c.Request.Context(), letters.SubmitInput{
		StudentID:     req.StudentID,
		AbsenceDate:   absence,
		Reason:        req.Reason,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		s.writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"letter": letter})
}

func (s *Server) listLetters(c *gin.Context) {
	var f letters.Filter
	if v := c.Query("date"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		f.Date = &d
	}
	f.Class = c.Query("class")
	if v := c.Query("status"); v != "" {
		st := letters.Status(v)
		if !st.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		f.Status = st
	}

	c.JSON(http.StatusOK, gin.H{"letters": s.store.Filtered(f)})
}

func (s *Server) updateLetter(c *gin.Context) {
	var req struct {
		AbsenceDate   *string `json:"absence_date"`
		Reason        *string `json:"reason"`
		AttachmentURL *string `json:"attachment_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var upd letters.LetterUpdate
	if req.AbsenceDate != nil {
		d, err := time.ParseInLocation(dateLayout, *req.AbsenceDate, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "absence_date must be YYYY-MM-DD"})
			return
		}
		upd.AbsenceDate = &d
	}
	upd.Reason = req.Reason
	upd.AttachmentURL = req.AttachmentURL

	letter, ok, err := s.store.UpdateLetter(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		s.writeStoreErr(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"updated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true, "letter": letter})
}

func (s *Server) reviewLetter(c *gin.Context) {
	var req struct {
		Status   string `json:"status" binding:"required"`
		Feedback string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	letter, ok, err := s.store.UpdateLetterStatus(c.Request.Context(), c.Param("id"), letters.Status(req.Status), req.Feedback)
	if err != nil {
		s.writeStoreErr(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"updated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true, "letter": letter})
}

func (s *Server) deleteLetter(c *gin.Context) {
	if err := s.store.DeleteLetter(c.Request.Context(), c.Param("id")); err != nil {
		s.writeStoreErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// studentStatus authenticates a student and returns their letters. The
// response is delayed by a configurable amount so the UI can show progress
// feedback; nothing downstream waits on it.
func (s *Server) studentStatus(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id" binding:"required"`
		Password  string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.cfg.StudentAuthDelay > 0 {
		select {
		case <-time.After(s.cfg.StudentAuthDelay):
		case <-c.Request.Context().Done():
			return
		}
	}

	student, err := s.store.AuthenticateStudent(c.Request.Context(), req.StudentID, req.Password)
	if err != nil {
		s.writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student": student,
		"letters": s.store.LettersForStudent(student.ID),
	})
}

func (s *Server) listStudents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"students": s.store.Students()})
}

func (s *Server) listReviewers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reviewers": s.store.Reviewers()})
}

type accountUpdateRequest struct {
	Name     *string `json:"name"`
	Class    *string `json:"class"`
	Password *string `json:"password"`
}

func (r accountUpdateRequest) toUpdate() letters.AccountUpdate {
	return letters.AccountUpdate{Name: r.Name, Class: r.Class, Password: r.Password}
}

func (s *Server) updateStudent(c *gin.Context) {
	var req accountUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	student, err := s.store.UpdateStudent(c.Request.Context(), c.Param("id"), req.toUpdate())
	if err != nil {
		s.writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

func (s *Server) updateReviewer(c *gin.Context) {
	var req accountUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reviewer, err := s.store.UpdateReviewer(c.Request.Context(), c.Param("id"), req.toUpdate())
	if err != nil {
		s.writeStoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviewer": reviewer})
}

func (s *Server) uploadAttachment(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
		return
	}

	meta, err := s.files.Put(c.Request.Context(), header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, attachments.ErrTooLarge), errors.Is(err, attachments.ErrBadType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			s.logger.Error("attachment store failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "attachment upload failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url":      meta.URL(),
		"id":       meta.ID,
		"filename": meta.Filename,
		"bytes":    meta.Size,
	})
}

func (s *Server) downloadAttachment(c *gin.Context) {
	data, meta, err := s.files.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, attachments.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
			return
		}
		s.logger.Error("attachment fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+meta.Filename+`"`)
	c.Data(http.StatusOK, meta.ContentType, data)
}

func (s *Server) auditTrail(c *gin.Context) {
	if s.trail == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit trail not configured"})
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	entries, err := s.trail.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("audit read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
