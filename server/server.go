package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/zimbra-connector/addressbook"
	"github.com/jrsteele09/zimbra-connector/connector"
	"github.com/jrsteele09/zimbra-connector/internal/config"
	"github.com/jrsteele09/zimbra-connector/search"
)

// Deps are the connector components the HTTP surface exposes.
type Deps struct {
	Service     *connector.Service
	AddressBook *addressbook.AddressBook
	Search      *search.Provider
}

type Server struct {
	env         string // Environment (e.g., "DEV", "PROD")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	service     *connector.Service
	addressBook *addressbook.AddressBook
	search      *search.Provider
	hostSecret  []byte
	nowTime     func() time.Time
}

type ServerOption func(*Server)

// WithNowTime overrides the clock used to validate host tokens.
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func New(cfg config.Config, deps Deps, options ...ServerOption) (*Server, error) {
	secret := cfg.GetHostTokenSecret()
	if secret == "" {
		return nil, fmt.Errorf("[Server New] HOST_TOKEN_SECRET is not configured")
	}
	if deps.Service == nil || deps.AddressBook == nil || deps.Search == nil {
		return nil, fmt.Errorf("[Server New] missing connector dependencies")
	}

	s := &Server{
		env:         cfg.GetEnv(),
		mux:         http.NewServeMux(),
		config:      cfg,
		service:     deps.Service,
		addressBook: deps.AddressBook,
		search:      deps.Search,
		hostSecret:  []byte(secret),
		nowTime:     time.Now,
	}
	for _, option := range options {
		option(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}
