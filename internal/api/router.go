package api

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"construct-chat/internal/db"
	"construct-chat/internal/imagegen"
	"construct-chat/internal/models"
	"construct-chat/internal/orchestrator"
	"construct-chat/internal/session"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher interface for SSE support
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Services are the dependencies the HTTP API is built on
type Services struct {
	Store        *db.Store
	Session      *session.Session
	Orchestrator *orchestrator.Orchestrator
	Broadcaster  *EventBroadcaster
	Status       StatusChecker
	Images       *imagegen.Client
	// Primary overrides how a construct is made primary; defaults to the session
	Primary   PrimarySetter
	StaticDir string
}

// Router holds the HTTP multiplexer and dependencies
type Router struct {
	mux               *http.ServeMux
	constructHandler  *DocumentHandler[models.Construct]
	commandHandler    *DocumentHandler[models.Command]
	attachmentHandler *DocumentHandler[models.Attachment]
	activeHandler     *ActiveHandler
	chatHandler       *ChatHandler
	eventsHandler     *ChatEventsHandler
	llmHandler        *LLMHandler
	settingsHandler   *SettingsHandler
	broadcaster       *EventBroadcaster
	staticDir         string
}

// NewRouter creates a new router with all routes configured
func NewRouter(svc Services) *Router {
	broadcaster := svc.Broadcaster
	if broadcaster == nil {
		broadcaster = NewEventBroadcaster()
	}

	constructs := NewDocumentHandler(svc.Store.Constructs, "construct", func(c *models.Construct) *string { return &c.ID })
	constructs.validate = func(c *models.Construct) string {
		if strings.TrimSpace(c.Name) == "" {
			return "Name is required"
		}
		return ""
	}
	constructs.onDelete = func(id string) {
		if err := svc.Session.RemoveActive(id); err != nil {
			log.Printf("[HTTP] Failed to deactivate deleted construct id=%s err=%v", id, err)
		}
	}

	r := &Router{
		mux:               http.NewServeMux(),
		constructHandler:  constructs,
		commandHandler:    NewDocumentHandler(svc.Store.Commands, "command", func(c *models.Command) *string { return &c.ID }),
		attachmentHandler: NewDocumentHandler(svc.Store.Attachments, "attachment", func(a *models.Attachment) *string { return &a.ID }),
		activeHandler:     NewActiveHandler(svc.Session, svc.Store, svc.Primary),
		chatHandler:       NewChatHandler(svc.Store, svc.Orchestrator, broadcaster),
		eventsHandler:     NewChatEventsHandler(broadcaster),
		llmHandler:        NewLLMHandler(svc.Session, svc.Status),
		settingsHandler:   NewSettingsHandler(svc.Session, svc.Images),
		broadcaster:       broadcaster,
		staticDir:         svc.StaticDir,
	}
	r.setupRoutes()
	return r
}

// setupRoutes configures all HTTP routes
func (r *Router) setupRoutes() {
	// Health check
	r.mux.HandleFunc("GET /health", HealthHandler)

	// Construct routes
	r.mux.HandleFunc("GET /api/constructs", r.constructHandler.List)
	r.mux.HandleFunc("POST /api/constructs", r.constructHandler.Create)
	r.mux.HandleFunc("GET /api/constructs/{id}", r.constructHandler.Get)
	r.mux.HandleFunc("PUT /api/constructs/{id}", r.constructHandler.Update)
	r.mux.HandleFunc("DELETE /api/constructs/{id}", r.constructHandler.Delete)

	// Active construct routes
	r.mux.HandleFunc("GET /api/active", r.activeHandler.List)
	r.mux.HandleFunc("DELETE /api/active", r.activeHandler.Clear)
	r.mux.HandleFunc("POST /api/active/{id}", r.activeHandler.Add)
	r.mux.HandleFunc("DELETE /api/active/{id}", r.activeHandler.Remove)
	r.mux.HandleFunc("POST /api/active/{id}/primary", r.activeHandler.SetPrimary)

	// Chat routes
	r.mux.HandleFunc("GET /api/chats", r.chatHandler.List)
	r.mux.HandleFunc("GET /api/chats/{id}", r.chatHandler.Get)
	r.mux.HandleFunc("DELETE /api/chats/{id}", r.chatHandler.Delete)
	r.mux.HandleFunc("POST /api/chats/{id}/messages", r.chatHandler.SendMessage)
	r.mux.HandleFunc("POST /api/chats/{id}/continue", r.chatHandler.Continue)
	r.mux.HandleFunc("POST /api/chats/{id}/regenerate", r.chatHandler.Regenerate)
	r.mux.HandleFunc("POST /api/chats/{id}/remove", r.chatHandler.Remove)

	// SSE events route
	r.mux.HandleFunc("GET /api/chats/{id}/events", r.eventsHandler.HandleEvents)

	// Command and attachment routes
	r.mux.HandleFunc("GET /api/commands", r.commandHandler.List)
	r.mux.HandleFunc("POST /api/commands", r.commandHandler.Create)
	r.mux.HandleFunc("GET /api/commands/{id}", r.commandHandler.Get)
	r.mux.HandleFunc("DELETE /api/commands/{id}", r.commandHandler.Delete)
	r.mux.HandleFunc("GET /api/attachments", r.attachmentHandler.List)
	r.mux.HandleFunc("POST /api/attachments", r.attachmentHandler.Create)
	r.mux.HandleFunc("GET /api/attachments/{id}", r.attachmentHandler.Get)
	r.mux.HandleFunc("DELETE /api/attachments/{id}", r.attachmentHandler.Delete)

	// LLM routes
	r.mux.HandleFunc("GET /api/llm/connection", r.llmHandler.GetConnection)
	r.mux.HandleFunc("PUT /api/llm/connection", r.llmHandler.PutConnection)
	r.mux.HandleFunc("GET /api/llm/settings", r.llmHandler.GetSettings)
	r.mux.HandleFunc("PUT /api/llm/settings", r.llmHandler.PutSettings)
	r.mux.HandleFunc("GET /api/llm/status", r.llmHandler.Status)

	// Conversation and channel routes
	r.mux.HandleFunc("GET /api/conversation/settings", r.settingsHandler.GetConversation)
	r.mux.HandleFunc("PUT /api/conversation/settings", r.settingsHandler.PutConversation)
	r.mux.HandleFunc("GET /api/channels", r.settingsHandler.ListChannels)
	r.mux.HandleFunc("POST /api/channels", r.settingsHandler.RegisterChannel)
	r.mux.HandleFunc("DELETE /api/channels/{id}", r.settingsHandler.UnregisterChannel)
	r.mux.HandleFunc("POST /api/channels/{id}/aliases", r.settingsHandler.SetAlias)

	// Stable Diffusion routes
	r.mux.HandleFunc("GET /api/sd/settings", r.settingsHandler.GetImageSettings)
	r.mux.HandleFunc("PUT /api/sd/settings", r.settingsHandler.PutImageSettings)
	r.mux.HandleFunc("POST /api/sd/txt2img", r.settingsHandler.Txt2Img)

	// Static file serving (for frontend)
	if r.staticDir != "" {
		r.mux.HandleFunc("GET /", r.serveStatic)
	}
}

// serveStatic serves static files from the static directory
func (r *Router) serveStatic(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	filePath := filepath.Join(r.staticDir, filepath.Clean("/"+path))

	// Serve index.html for SPA routing
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		filePath = filepath.Join(r.staticDir, "index.html")
	}

	http.ServeFile(w, req, filePath)
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()

	// Add CORS headers for development
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if req.Method == http.MethodOptions {
		log.Printf("[HTTP] CORS preflight method=OPTIONS path=%s", req.URL.Path)
		w.WriteHeader(http.StatusOK)
		return
	}

	// Skip logging for static files, health checks, and SSE endpoints
	shouldLog := strings.HasPrefix(req.URL.Path, "/api/") && !strings.HasSuffix(req.URL.Path, "/events")

	if shouldLog {
		log.Printf("[HTTP] Request started method=%s path=%s", req.Method, req.URL.Path)
	}

	wrapped := newResponseWriter(w)
	r.mux.ServeHTTP(wrapped, req)

	if shouldLog {
		log.Printf("[HTTP] Request completed method=%s path=%s status=%d duration=%v",
			req.Method, req.URL.Path, wrapped.statusCode, time.Since(start))
	}
}

// Broadcaster returns the event broadcaster
func (r *Router) Broadcaster() *EventBroadcaster {
	return r.broadcaster
}
