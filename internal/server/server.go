// Package server is the reference REST backend the wizard talks to: user
// CRUD under /user and multipart uploads under /file-upload, persisted with
// gorm and a storage.Backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/media"
	"github.com/goliatone/go-userwizard/pkg/storage"
)

const (
	defaultMaxUpload = 32 << 20
	shutdownTimeout  = 10 * time.Second
	metricsSubsystem = "userwizard"
)

// Server wires the HTTP routes.
type Server struct {
	echo      *echo.Echo
	repo      *Repository
	store     storage.Backend
	logger    *zap.Logger
	now       func() time.Time
	newID     func() (string, error)
	metrics   *prometheus.Registry
	uploaded  *prometheus.CounterVec
	static    map[string]string
	maxUpload int64
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for ages and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how ids are assigned to users created without one.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Server) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithStatic serves the directory root under prefix, typically the local
// storage backend's files.
func WithStatic(prefix, root string) Option {
	return func(s *Server) {
		if prefix != "" && root != "" {
			s.static["/"+strings.Trim(prefix, "/")] = root
		}
	}
}

// WithMaxUploadSize caps request bodies on the upload route.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// New builds the router.
func New(repo *Repository, store storage.Backend, opts ...Option) (*Server, error) {
	if repo == nil {
		return nil, errors.New("server: repository is required")
	}
	if store == nil {
		return nil, errors.New("server: storage backend is required")
	}
	s := &Server{
		repo:      repo,
		store:     store,
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     newUUID,
		metrics:   prometheus.NewRegistry(),
		static:    map[string]string{},
		maxUpload: defaultMaxUpload,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.uploaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsSubsystem,
		Name:      "uploaded_bytes_total",
		Help:      "Bytes stored through the upload endpoint.",
	}, []string{"kind"})
	if err := s.metrics.Register(s.uploaded); err != nil {
		return nil, fmt.Errorf("server: register metrics: %w", err)
	}

	s.echo = s.routes()
	return s, nil
}

func newUUID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
			)
			return nil
		},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  metricsSubsystem,
		Registerer: s.metrics,
	}))

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: s.metrics,
	}))

	users := e.Group("/user")
	users.GET("/all", s.listUsers)
	users.POST("/add", s.createUser)
	users.GET("/:id", s.getUser)
	users.PUT("/:id", s.updateUser)
	users.DELETE("/:id", s.deleteUser)

	e.POST("/file-upload/upload/:isImage", s.upload, middleware.BodyLimit(strconv.FormatInt(s.maxUpload/1024, 10)+"K"))

	for prefix, root := range s.static {
		e.Static(prefix, root)
	}
	return e
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

type message struct {
	Message string `json:"message"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("unhandled error in endpoint",
			zap.String("url", c.Request().URL.String()),
			zap.Error(err),
		)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, message{Message: msg})
}

func (s *Server) listUsers(c echo.Context) error {
	users, err := s.repo.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) getUser(c echo.Context) error {
	user, err := s.repo.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return repoError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) createUser(c echo.Context) error {
	user, err := s.bindUser(c)
	if err != nil {
		return err
	}
	if user.ID == "" {
		if user.ID, err = s.newID(); err != nil {
			return fmt.Errorf("server: generate id: %w", err)
		}
	}
	today := entity.Today(s.now())
	if user.CreatedAt == "" {
		user.CreatedAt = today
	}
	user.UpdatedAt = today

	created, err := s.repo.Create(c.Request().Context(), user)
	if err != nil {
		return repoError(err)
	}
	s.logger.Info("user created", zap.String("id", created.ID), zap.String("user_id", created.UserID))
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateUser(c echo.Context) error {
	user, err := s.bindUser(c)
	if err != nil {
		return err
	}
	user.UpdatedAt = entity.Today(s.now())

	updated, err := s.repo.Update(c.Request().Context(), c.Param("id"), user)
	if err != nil {
		return repoError(err)
	}
	s.logger.Info("user updated", zap.String("id", updated.ID))
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteUser(c echo.Context) error {
	if err := s.repo.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return repoError(err)
	}
	s.logger.Info("user deleted", zap.String("id", c.Param("id")))
	return c.JSON(http.StatusOK, message{Message: "User Deleted Successfully"})
}

// bindUser decodes and validates the body, then derives age from dob.
func (s *Server) bindUser(c echo.Context) (entity.User, error) {
	var user entity.User
	if err := c.Bind(&user); err != nil {
		return entity.User{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(requestFor(user)); err != nil {
		return entity.User{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user.Username = strings.TrimSpace(user.Username)
	age, err := entity.AgeFromString(user.DOB, s.now())
	if err != nil {
		return entity.User{}, echo.NewHTTPError(http.StatusBadRequest, "invalid dob")
	}
	user.Age = age
	if user.Documents == nil {
		user.Documents = []entity.Document{}
	}
	if user.Addresses == nil {
		user.Addresses = []entity.Address{}
	}
	return user, nil
}

// upload stores the multipart "file" under folderName and answers with the
// public URL as a JSON string.
func (s *Server) upload(c echo.Context) error {
	image, err := strconv.ParseBool(c.Param("isImage"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "isImage must be true or false")
	}
	header, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if image && media.CategoryOf(header.Filename) != media.CategoryImage {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "only image files are accepted")
	}
	key, err := storage.ObjectKey(c.FormValue("folderName"), header.Filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("server: open upload: %w", err)
	}
	defer file.Close()

	contentType := header.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = media.ContentType(header.Filename)
	}
	url, err := s.store.Put(c.Request().Context(), key, file, header.Size, contentType)
	if err != nil {
		return fmt.Errorf("server: store %s: %w", key, err)
	}

	kind := string(media.CategoryFile)
	if image {
		kind = string(media.CategoryImage)
	}
	s.uploaded.WithLabelValues(kind).Add(float64(header.Size))
	s.logger.Info("file stored", zap.String("key", key), zap.Int64("size", header.Size))
	return c.JSON(http.StatusOK, url)
}

func repoError(err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	case errors.Is(err, ErrUserExists):
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	default:
		return err
	}
}
