// Package web serves generated datasets to an evaluation harness: the
// run manifest, the dataset files, and a websocket channel carrying
// generation progress events.
package web

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"

	"github.com/busforge/busforge/internal/runner"
)

// Server exposes one run's output directory over HTTP.
type Server struct {
	app       *fiber.App
	dir       string
	limiter   *rate.Limiter
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan []byte
}

// NewServer creates a server over an output directory. rps caps dataset
// downloads per second; 0 disables the limit.
func NewServer(dir string, rps int) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		app:       app,
		dir:       dir,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 100),
	}
	if rps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}

	s.setupRoutes()
	go s.handleBroadcast()

	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(cors.New())

	api := s.app.Group("/api")
	api.Get("/manifest", s.handleManifest)
	api.Get("/datasets/:file", s.handleDataset)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWebSocket))
}

// handleManifest returns the run manifest.
func (s *Server) handleManifest(c *fiber.Ctx) error {
	data, err := os.ReadFile(filepath.Join(s.dir, "manifest.json"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "no manifest; run a generation first"})
	}
	c.Set("Content-Type", "application/json")
	return c.Send(data)
}

// handleDataset streams one dataset file, rate-limited.
func (s *Server) handleDataset(c *fiber.Ctx) error {
	if s.limiter != nil && !s.limiter.Allow() {
		return c.Status(429).JSON(fiber.Map{"error": "rate limit exceeded"})
	}

	file := c.Params("file")
	if strings.Contains(file, "/") || strings.Contains(file, "..") {
		return c.Status(400).JSON(fiber.Map{"error": "bad dataset name"})
	}
	path := filepath.Join(s.dir, file)
	if _, err := os.Stat(path); err != nil {
		return c.Status(404).JSON(fiber.Map{"error": fmt.Sprintf("no dataset %q", file)})
	}
	return c.SendFile(path)
}

// handleWebSocket registers a progress subscriber.
func (s *Server) handleWebSocket(c *websocket.Conn) {
	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
		c.Close()
	}()

	// Hold the connection open; subscribers only receive.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

// handleBroadcast fans queued messages out to every subscriber.
func (s *Server) handleBroadcast() {
	for msg := range s.broadcast {
		s.clientsMu.Lock()
		for c := range s.clients {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				delete(s.clients, c)
			}
		}
		s.clientsMu.Unlock()
	}
}

// Publish broadcasts one progress event to websocket subscribers.
func (s *Server) Publish(e runner.Event) {
	payload := struct {
		Label string `json:"label"`
		Kind  string `json:"kind"`
		Done  int    `json:"done"`
		Total int    `json:"total"`
		Error string `json:"error,omitempty"`
	}{
		Label: e.Label,
		Kind:  string(e.Kind),
		Done:  e.Done,
		Total: e.Total,
	}
	if e.Err != nil {
		payload.Error = e.Err.Error()
	}

	msg, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal progress event: %v", err)
		return
	}
	select {
	case s.broadcast <- msg:
	default:
	}
}

// Listen serves until the listener fails or the app is shut down.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	close(s.broadcast)
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
