package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smartreceipts/pkg/applog"
	"smartreceipts/pkg/auth"
	"smartreceipts/pkg/imgload"
	"smartreceipts/pkg/nfce"
	"smartreceipts/pkg/ocr"
	"smartreceipts/pkg/store"
	"smartreceipts/pkg/uploads"
)

const maxUploadSize = 10 << 20

type server struct {
	db      *gorm.DB
	auth    *auth.Service
	scanner *ocr.Scanner
	uploads *uploads.Service
}

func (s *server) routes(r *gin.Engine) {
	r.POST("/register", s.registerHandler)
	r.POST("/login", s.loginHandler)
	r.POST("/refresh", s.refreshHandler)
	r.POST("/revoke_refresh", s.revokeRefreshHandler)

	authGroup := r.Group("")
	authGroup.Use(s.auth.Middleware())
	authGroup.GET("/me", s.meHandler)
	authGroup.POST("/scans", s.scanHandler)
	authGroup.POST("/receipts/parse", s.parseHandler)
	authGroup.GET("/receipts", s.listReceiptsHandler)
	authGroup.GET("/receipts/summary", s.summaryHandler)
	authGroup.GET("/receipts/:id", s.getReceiptHandler)
	authGroup.DELETE("/receipts/:id", s.deleteReceiptHandler)
	authGroup.POST("/receipts/:id/reparse", s.reparseHandler)
	authGroup.GET("/uploads", s.listUploadsHandler)
	authGroup.GET("/uploads/:id", s.getUploadHandler)
}

// statusFor maps the scan and store error taxonomy onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ocr.ErrImageLoadFailed), errors.Is(err, imgload.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, ocr.ErrTextRecognitionFailed), errors.Is(err, ocr.ErrNoTextFound), errors.Is(err, ocr.ErrEmptyText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound), errors.Is(err, uploads.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		applog.ForContext(c.Request.Context()).WithError(err).Error("request failed")
	}
	c.JSON(code, gin.H{"error": ocr.UserMessage(err)})
}

func (s *server) receipts(c *gin.Context) *store.Gorm {
	return store.NewGorm(s.db).ForUser(auth.ScopeUserID(c))
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *server) registerHandler(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, err := s.auth.Register(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrUsernameRequired), errors.Is(err, auth.ErrPasswordTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		s.fail(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
	}
}

func (s *server) loginHandler(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokens, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokens.AccessToken, "refresh_token": tokens.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token.
func (s *server) refreshHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokens, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, auth.ErrInvalidRefreshToken) || errors.Is(err, auth.ErrUserNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// revokeRefreshHandler revokes a given refresh token (logout).
func (s *server) revokeRefreshHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.auth.Revoke(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, auth.ErrInvalidRefreshToken) {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func (s *server) meHandler(c *gin.Context) {
	user, err := s.auth.User(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username, "role": user.Role.Name})
}

// scanHandler stores a receipt image for the caller and scans it.
func (s *server) scanHandler(c *gin.Context) {
	ctx := c.Request.Context()
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
		return
	}
	if !imgload.Supported(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable"})
		return
	}
	defer src.Close()

	ct := file.Header.Get("Content-Type")
	if ct == "" {
		ct = imgload.MimeFromExt(file.Filename)
	}
	up, err := s.uploads.Store(ctx, auth.UserID(c), file.Filename, src, ct)
	if err != nil {
		s.fail(c, err)
		return
	}

	receipt, err := s.uploads.Process(ctx, &up)
	if err != nil {
		code := statusFor(err)
		if code != http.StatusInternalServerError {
			code = http.StatusUnprocessableEntity
		}
		c.JSON(code, gin.H{"error": ocr.UserMessage(err), "upload": up})
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload": up, "receipt": receipt})
}

// parseHandler parses recognized text sent by a client that ran its own OCR.
func (s *server) parseHandler(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
		Save bool   `json:"save"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt, err := s.scanner.ParseText(req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	if req.Save {
		if err := store.NewGorm(s.db).ForUser(auth.UserID(c)).Save(c.Request.Context(), &receipt); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *server) listReceiptsHandler(c *gin.Context) {
	list, err := s.receipts(c).List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *server) getReceiptHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	r, err := s.receipts(c).Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *server) deleteReceiptHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.receipts(c).Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// reparseHandler runs the current parser over the stored raw text.
func (s *server) reparseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	st := s.receipts(c)
	old, err := st.Get(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	fresh := nfce.Parse(old.RawText)
	fresh.ID, fresh.CreatedAt = old.ID, old.CreatedAt
	if err := st.Save(ctx, &fresh); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fresh)
}

// summaryHandler returns receipt count and total per month.
func (s *server) summaryHandler(c *gin.Context) {
	rows, err := s.receipts(c).Summary(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// listUploadsHandler returns uploads; admin sees all, a user only their own.
func (s *server) listUploadsHandler(c *gin.Context) {
	ups, err := s.uploads.List(c.Request.Context(), auth.ScopeUserID(c), 100)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ups)
}

func (s *server) getUploadHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	up, err := s.uploads.Get(c.Request.Context(), auth.ScopeUserID(c), id)
	if err != nil {
		if errors.Is(err, uploads.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, up)
}
