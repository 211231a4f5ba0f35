// Package backend is a reference implementation of the invoicing backend the
// console talks to. It exists for local development and end-to-end tests;
// invoice rendering, mail delivery and spreadsheet parsing are stubs.
package backend

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"invoice-console/internal/auth"
	"invoice-console/internal/invoicing"
	"invoice-console/internal/rbac"
	"invoice-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Resources served by the generic simple-REST handlers.
var Resources = []string{
	invoicing.ResourceClients,
	invoicing.ResourceCompany,
	invoicing.ResourceProduct,
	invoicing.ResourcePaymentMethod,
	invoicing.ResourceInvoice,
}

// Email is a message "sent" by the send-email action.
type Email struct {
	InvoiceID string    `json:"invoiceId"`
	To        string    `json:"to"`
	SentAt    time.Time `json:"sentAt"`
}

type Server struct {
	users *Users
	auth  *auth.Manager
	log   *slog.Logger

	collections map[string]*Collection

	mu     sync.Mutex
	outbox []Email

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewServer(users *Users, m *auth.Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		users:       users,
		auth:        m,
		log:         log,
		collections: make(map[string]*Collection, len(Resources)),
		clock:       time.Now,
	}
	for _, r := range Resources {
		s.collections[r] = NewCollection()
	}
	return s
}

func (s *Server) collection(resource string) *Collection {
	return s.collections[resource]
}

// Outbox returns the emails recorded so far.
func (s *Server) Outbox() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Email, len(s.outbox))
	copy(out, s.outbox)
	return out
}

// Router builds the gin engine exposing the backend under /api.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/login", s.login)

	p := api.Group("", auth.RequireAccessToken(s.auth))
	{
		p.POST("/invoiceGenerator", s.invoiceTemplate)
		p.POST("/uploadExcel", s.uploadWorkbook)

		p.GET("/:resource", s.list)
		p.POST("/:resource", s.create)
		p.GET("/:resource/:id", s.getOne)
		p.PATCH("/:resource/:id", s.patch)
		p.DELETE("/:resource/:id", rbac.RequireAnyRole(rbac.RoleAdmin), s.remove)

		p.GET("/:resource/:id/:action", s.invoiceDocument)
		p.PATCH("/:resource/:id/:action", rbac.RequireAnyRole(rbac.RoleFinance), s.invoiceAction)
		p.POST("/:resource/:id/:action", rbac.RequireAnyRole(rbac.RoleFinance), s.invoiceAction)
	}
	return r
}
